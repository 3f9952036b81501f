package auth

import (
	"testing"
	"time"

	"chartedregistry/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerMintAndVerify(t *testing.T) {
	signer := NewSigner("secret", "charted")
	uid, sid := types.NewULID(), types.NewULID()

	token, err := signer.Mint(uid, sid, time.Hour)
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.UID)
	assert.Equal(t, sid, claims.SID)
}

func TestSignerVerifyExpired(t *testing.T) {
	signer := NewSigner("secret", "charted")
	uid, sid := types.NewULID(), types.NewULID()

	token, err := signer.Mint(uid, sid, -time.Hour)
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestSignerVerifyRejectsWrongSecret(t *testing.T) {
	signer := NewSigner("secret", "charted")
	other := NewSigner("different", "charted")

	uid, sid := types.NewULID(), types.NewULID()
	token, err := signer.Mint(uid, sid, time.Hour)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalid)
}
