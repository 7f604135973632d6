package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseField(t *testing.T) {
	for _, f := range Fields {
		got, ok := ParseField(string(f))
		assert.True(t, ok, f)
		assert.Equal(t, f, got)
		assert.NotEqual(t, string(f), f.Label(), "every field has a label")
	}

	_, ok := ParseField("submission")
	assert.False(t, ok)
	_, ok = ParseField("FirstName")
	assert.False(t, ok)
}

func TestEveryEditableFieldBelongsToOneStep(t *testing.T) {
	seen := map[Field]int{}
	for n := FirstStep; n <= FinalStep; n++ {
		for _, f := range StepFields(n) {
			seen[f]++
		}
	}
	for _, f := range Fields {
		assert.Equal(t, 1, seen[f], f)
	}
	assert.Len(t, seen, len(Fields))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "in_flight", StateInFlight.String())
	assert.Equal(t, "succeeded", StateSucceeded.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestRejection_Error(t *testing.T) {
	assert.Equal(t, "submission rejected with status 500: server error",
		(&Rejection{Status: 500, Message: "server error"}).Error())
	assert.Equal(t, "submission rejected with status 400", (&Rejection{Status: 400}).Error())
}

func TestErrors_FieldsSorted(t *testing.T) {
	e := Errors{FieldZip: "z", FieldCity: "c", FieldEmail: "e"}
	assert.Equal(t, []Field{FieldCity, FieldEmail, FieldZip}, e.Fields())
}
