package app

// errors.go maps run failures to short user-facing messages with a code
// that operators can quote.
//
// # Error Codes Reference
//
// Source (SRC001-SRC099):
//
//	SRC001 - Empty file: the source has no header row
//	SRC002 - Invalid CSV: the source could not be parsed
//	SRC003 - File not found: nothing exists at the source path
//
// Cleaning (CLN001-CLN099):
//
//	CLN001 - Missing column: a stage needs a column the file does not have
//
// Load (LOAD001-LOAD099):
//
//	LOAD001 - Destination unreachable
//	LOAD002 - Destination write failed
//
// Runs (RUN001-RUN099):
//
//	RUN001 - A run for this destination is already in progress
//	RUN002 - The run was cancelled or timed out
//
// ERR000 is the fallback for anything else.

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/ToniPaltus/airflow-intro/internal/clean"
	"github.com/ToniPaltus/airflow-intro/internal/load"
	"github.com/ToniPaltus/airflow-intro/internal/sensor"
	"github.com/ToniPaltus/airflow-intro/internal/source"
)

// UserMessage is a failure explained for the person who triggered the run.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	msgEmptyFile = UserMessage{
		Message: "The source file is empty",
		Action:  "Check that the export wrote a header row and data",
		Code:    "SRC001",
	}
	msgInvalidCSV = UserMessage{
		Message: "The source file is not valid CSV",
		Action:  "Check the delimiter, quoting and column count of every row",
		Code:    "SRC002",
	}
	msgNotFound = UserMessage{
		Message: "The source file was not found",
		Action:  "Check FILE_PATH or pass an existing file",
		Code:    "SRC003",
	}
	msgMissingColumn = UserMessage{
		Message: "A required column is missing from the source file",
		Action:  "Add the column or point CLEAN_SORT_FIELD / CLEAN_TEXT_FIELD at an existing one",
		Code:    "CLN001",
	}
	msgConnection = UserMessage{
		Message: "Unable to connect to the destination",
		Action:  "Check DEST_URI and that the database is running, then retry",
		Code:    "LOAD001",
	}
	msgWrite = UserMessage{
		Message: "Writing to the destination failed",
		Action:  "Check the destination logs and retry; with drop-insert the collection may be partial",
		Code:    "LOAD002",
	}
	msgRunInProgress = UserMessage{
		Message: "A run for this destination is already in progress",
		Action:  "Wait for it to finish and try again",
		Code:    "RUN001",
	}
	msgCancelled = UserMessage{
		Message: "The run was cancelled or timed out",
		Action:  "Retry, or raise LOAD_TIMEOUT / SENSOR_TIMEOUT",
		Code:    "RUN002",
	}

	defaultMessage = UserMessage{
		Message: "The run failed",
		Action:  "Check the logs for this run id",
		Code:    "ERR000",
	}
)

// errorKinds is checked in order; the first match wins.
var errorKinds = []struct {
	target error
	msg    UserMessage
}{
	{ErrRunInProgress, msgRunInProgress},
	{clean.ErrMissingColumn, msgMissingColumn},
	{load.ErrConnection, msgConnection},
	{load.ErrWrite, msgWrite},
	{source.ErrEmptyFile, msgEmptyFile},
	{source.ErrInvalidCSV, msgInvalidCSV},
	{source.ErrInvalidValue, msgInvalidCSV},
	{fs.ErrNotExist, msgNotFound},
	{sensor.ErrTimeout, msgCancelled},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgCancelled},
}

// errorPatterns catch driver errors that reach MapError unwrapped.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"connection refused", msgConnection},
	{"server selection error", msgConnection},
	{"no such host", msgConnection},
}

// MapError converts an error into a user-friendly message.
// Returns an empty UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			return p.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
