package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", cause, ExitGeneral},
		{"general", GeneralError("running", cause), ExitGeneral},
		{"config", ConfigError("loading configuration", cause), ExitConfig},
		{"statement file", StatementFileError("reading stmt.yaml", cause), ExitStatementFile},
		{"db connect", DBConnectError("connecting", cause), ExitDBConnect},
		{"wrapped", fmt.Errorf("outer: %w", DBConnectError("connecting", cause)), ExitDBConnect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	err := ConfigError("loading configuration", errors.New("bad yaml"))
	assert.Equal(t, "loading configuration: bad yaml", err.Error())
	assert.ErrorContains(t, err, "bad yaml")
	assert.Equal(t, "no cause", (&ExitError{Code: ExitGeneral, Message: "no cause"}).Error())

	cause := errors.New("cause")
	assert.ErrorIs(t, StatementFileError("x", cause), cause)
}
