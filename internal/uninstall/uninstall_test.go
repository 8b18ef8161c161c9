package uninstall

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultExitCodeCleanIsZero(t *testing.T) {
	assert.Equal(t, 0, Result{Residue: false}.ExitCode())
}

func TestResultExitCodeResidueIsNonZero(t *testing.T) {
	assert.NotEqual(t, 0, Result{Residue: true}.ExitCode())
}
