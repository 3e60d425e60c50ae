package fluentzip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordCascadeOrder(t *testing.T) {
	t.Parallel()

	cascade := newPasswordCascade([]string{"b", "", "a", "b"})
	require.Equal(t, []string{"", "b", "a"}, cascade.candidates)

	var tried []string
	used, err := cascade.open("x.7z", func(password string) error {
		tried = append(tried, password)
		if password == "a" {
			return nil
		}
		return errors.New("wrong password")
	})
	require.NoError(t, err)
	require.Equal(t, "a", used)
	require.Equal(t, []string{"", "b", "a"}, tried)
}

func TestPasswordCascadeStopsOnOtherErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := newPasswordCascade([]string{"a"}).open("x.rar", func(string) error {
		calls++
		return errors.New("unexpected EOF")
	})
	require.EqualError(t, err, "unexpected EOF")
	require.Equal(t, 1, calls)

	_, err = newPasswordCascade([]string{"a"}).open("x.rar", func(string) error {
		return NewArchiveError(ErrParseFailure, "bad", "x.rar", errors.New("rardecode: incorrect password"))
	})
	require.True(t, IsErrorType(err, ErrParseFailure))
	require.ErrorContains(t, err, "没有可用的密码")
}
