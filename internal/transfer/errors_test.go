package transfer

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		kind   Kind
		status int
	}{
		{nil, KindNone, StatusOK},
		{ioErr("op", io.ErrUnexpectedEOF), KindIO, StatusIOError},
		{localErr("op", errors.New("disk")), KindLocalIO, StatusLocalIOError},
		{protoErr("op", ErrChunkTooLarge), KindProtocol, StatusProtocolError},
		{integrityErr("op", ErrChecksumMismatch), KindIntegrity, StatusIntegrityError},
		{requestErr("op", ErrEmptyPath), KindInvalidRequest, StatusInvalidRequest},
		{errors.New("unclassified"), KindIO, StatusIOError},
	}
	for _, c := range cases {
		require.Equal(t, c.kind, KindOf(c.err), "%v", c.err)
		require.Equal(t, c.status, StatusOf(c.err), "%v", c.err)
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", integrityErr("verify", ErrChecksumMismatch))
	require.Equal(t, KindIntegrity, KindOf(err))
	require.ErrorIs(t, err, ErrChecksumMismatch)

	var te *Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, "verify", te.Op)
}
