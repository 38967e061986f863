package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/ToniPaltus/airflow-intro/internal/clean"
	"github.com/ToniPaltus/airflow-intro/internal/load"
	"github.com/ToniPaltus/airflow-intro/internal/sensor"
	"github.com/ToniPaltus/airflow-intro/internal/source"
)

func TestMapError(t *testing.T) {
	dest := load.Destination{Database: "db", Collection: "c"}
	_, notExist := os.Open("/definitely/not/here.csv")

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil", nil, ""},
		{"missing column", pkgerrors.Wrap(&clean.MissingColumnError{Stage: "sort_by_field", Column: "at"}, "clean"), "CLN001"},
		{"connection", &load.ConnectionError{Destination: dest, Err: errors.New("refused")}, "LOAD001"},
		{"write", pkgerrors.Wrap(&load.WriteError{Op: "insert", Destination: dest, Err: errors.New("disk full")}, "load"), "LOAD002"},
		{"write wrapping timeout", &load.WriteError{Op: "insert", Err: context.DeadlineExceeded}, "LOAD002"},
		{"empty file", fmt.Errorf("read x.csv: %w", source.ErrEmptyFile), "SRC001"},
		{"invalid csv", fmt.Errorf("read x.csv: %w", source.ErrInvalidCSV), "SRC002"},
		{"invalid value", fmt.Errorf("line 3: %w", source.ErrInvalidValue), "SRC002"},
		{"not found", fmt.Errorf("open source: %w", notExist), "SRC003"},
		{"in progress", ErrRunInProgress, "RUN001"},
		{"cancelled", pkgerrors.Wrap(context.Canceled, "before stage deduplicate"), "RUN002"},
		{"sensor timeout", fmt.Errorf("%w after 1s", sensor.ErrTimeout), "RUN002"},
		{"driver text", errors.New("dial tcp: connection refused"), "LOAD001"},
		{"unknown", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			if tt.err != nil {
				assert.NotEmpty(t, got.Message)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	assert.Empty(t, FormatUserError(nil))
	assert.Equal(t,
		"A run for this destination is already in progress (Code: RUN001). Wait for it to finish and try again",
		FormatUserError(ErrRunInProgress))
}
