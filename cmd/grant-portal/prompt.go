package main

import (
	"errors"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// errAborted is returned when the user interrupts a prompt.
var errAborted = errors.New("aborted by user")

// Prompter asks the user for input. The apply and login flows only talk
// to this interface so they can run against scripted answers.
type Prompter interface {
	Input(message, help, def string) (string, error)
	Password(message string) (string, error)
	Confirm(message string, def bool) (bool, error)
	Select(message string, options []string, def string) (string, error)
}

// SurveyIO holds the streams the terminal prompts read from and write to.
type SurveyIO struct {
	In  terminal.FileReader
	Out terminal.FileWriter
	Err terminal.FileWriter
}

var DefaultSurveyIO = SurveyIO{
	In:  os.Stdin,
	Out: os.Stdout,
	Err: os.Stderr,
}

func (s SurveyIO) WithStdio() survey.AskOpt {
	return survey.WithStdio(s.In, s.Out, s.Err)
}

type surveyPrompter struct {
	io SurveyIO
}

func newSurveyPrompter(io SurveyIO) *surveyPrompter {
	return &surveyPrompter{io: io}
}

func (p *surveyPrompter) Input(message, help, def string) (string, error) {
	var out string
	prompt := &survey.Input{Message: message, Help: help, Default: def}
	if err := survey.AskOne(prompt, &out, p.io.WithStdio()); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (p *surveyPrompter) Password(message string) (string, error) {
	var out string
	prompt := &survey.Password{Message: message}
	if err := survey.AskOne(prompt, &out, survey.WithValidator(survey.Required), p.io.WithStdio()); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (p *surveyPrompter) Confirm(message string, def bool) (bool, error) {
	var out bool
	prompt := &survey.Confirm{Message: message, Default: def}
	if err := survey.AskOne(prompt, &out, p.io.WithStdio()); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func (p *surveyPrompter) Select(message string, options []string, def string) (string, error) {
	var out string
	prompt := &survey.Select{Message: message, Options: options, PageSize: 12}
	for _, o := range options {
		if o == def {
			prompt.Default = def
			break
		}
	}
	if err := survey.AskOne(prompt, &out, p.io.WithStdio()); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}
