package form

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"
)

// PayloadField is one scalar part of the submission.
type PayloadField struct {
	Name  Field
	Value string
}

// PayloadFile is one file part of the submission.
type PayloadFile struct {
	Name       Field
	Attachment *Attachment
}

// Payload is the serialized form of a draft, ready to be encoded as
// multipart/form-data.
type Payload struct {
	RequestID string
	Fields    []PayloadField
	Files     []PayloadFile
}

// BuildPayload serializes d. Scalar fields keep declaration order,
// booleans become "true"/"false" and file parts are included only when bound.
func BuildPayload(d Draft) *Payload {
	p := &Payload{}
	for _, f := range Fields {
		switch {
		case f.IsFile():
			if a := d.File(f); a != nil {
				p.Files = append(p.Files, PayloadFile{Name: f, Attachment: a})
			}
		case f.IsFlag():
			p.Fields = append(p.Fields, PayloadField{Name: f, Value: strconv.FormatBool(d.Flag(f))})
		default:
			p.Fields = append(p.Fields, PayloadField{Name: f, Value: d.Text(f)})
		}
	}
	return p
}

// Value returns the scalar value of name.
func (p *Payload) Value(name Field) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// WriteMultipart encodes the payload to w and returns the Content-Type
// header value, boundary included.
func (p *Payload) WriteMultipart(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)

	for _, f := range p.Fields {
		if err := mw.WriteField(string(f.Name), f.Value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", f.Name, err)
		}
	}

	for _, f := range p.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(string(f.Name)), quoteEscaper.Replace(f.Attachment.Filename)))
		contentType := f.Attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := mw.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("failed to create part %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Attachment.Data); err != nil {
			return "", fmt.Errorf("failed to write part %s: %w", f.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return mw.FormDataContentType(), nil
}
