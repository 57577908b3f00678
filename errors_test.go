package hibf

import (
	"testing"

	goerrors "errors"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrap(t *testing.T) {
	cause := goerrors.New("boom")
	err := wrapError(BuilderCallbackFailed, "building failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, BuilderCallbackFailed, err.Kind)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "BuilderCallbackFailed")
}

func TestErrKindString(t *testing.T) {
	cases := map[ErrKind]string{
		ConfigInvalid:         "ConfigInvalid",
		LayoutInfeasible:      "LayoutInfeasible",
		BuilderCallbackFailed: "BuilderCallbackFailed",
		Serialization:         "Serialization",
		ErrKind(99):           "Unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
