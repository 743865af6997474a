package main

import (
	"errors"

	herrors "github.com/apache/harmony-sub021/pkg/errors"
)

const (
	exitOK     = 0
	exitError  = 1
	exitFailed = 2
	exitUsage  = 64
	exitData   = 65
)

type exitCoder interface {
	ExitCode() int
}

type codedExit struct {
	code int
	err  error
}

func (e codedExit) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e codedExit) Unwrap() error {
	return e.err
}

func (e codedExit) ExitCode() int {
	if e.code == 0 {
		return exitError
	}
	return e.code
}

func withExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return codedExit{code: code, err: err}
}

func exitCodeForError(err error) int {
	if err == nil {
		return exitOK
	}
	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	switch herrors.GetCode(err) {
	case herrors.ErrCodeConfigLoad, herrors.ErrCodeConfigParse, herrors.ErrCodeConfigInvalid, herrors.ErrCodeSceneInvalid:
		return exitData
	}
	return exitError
}
