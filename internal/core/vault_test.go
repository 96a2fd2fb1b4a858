package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/illarion/pwvault/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassphrase = "Tr0ub4dor&3"

// fakePrompter replays scripted answers and records every prompt.
type fakePrompter struct {
	newPassphrases [][2]string
	attempts       []string

	newCalls  int
	remaining []int
	rejected  []error
}

func (f *fakePrompter) ReadNewPassphrase(ctx context.Context) ([]byte, []byte, error) {
	if f.newCalls >= len(f.newPassphrases) {
		return nil, nil, ErrCancelled
	}
	pair := f.newPassphrases[f.newCalls]
	f.newCalls++
	return []byte(pair[0]), []byte(pair[1]), nil
}

func (f *fakePrompter) ReadPassphrase(ctx context.Context, remaining int) ([]byte, error) {
	if len(f.remaining) >= len(f.attempts) {
		return nil, ErrCancelled
	}
	answer := f.attempts[len(f.remaining)]
	f.remaining = append(f.remaining, remaining)
	return []byte(answer), nil
}

func (f *fakePrompter) Reject(err error) {
	f.rejected = append(f.rejected, err)
}

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	return New(Paths{
		Dir:       filepath.Join(t.TempDir(), "vault"),
		KeyFile:   "vault.key",
		LogFile:   "passwords.log",
		IndexFile: "index.db",
	}, WithIterations(1000))
}

// setupVault creates the vault with testPassphrase.
func setupVault(t *testing.T, v *Vault) *Capability {
	t.Helper()
	c, err := v.Authenticate(context.Background(), &fakePrompter{
		newPassphrases: [][2]string{{testPassphrase, testPassphrase}},
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestAuthenticate_Setup(t *testing.T) {
	v := newTestVault(t)

	initialized, err := v.Initialized()
	require.NoError(t, err)
	assert.False(t, initialized)

	p := &fakePrompter{newPassphrases: [][2]string{
		{"", ""},
		{"one", "two"},
		{CancelWord, CancelWord},
		{testPassphrase, testPassphrase},
	}}
	c, err := v.Authenticate(context.Background(), p)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 4, p.newCalls)
	require.Len(t, p.rejected, 3)
	assert.ErrorIs(t, p.rejected[0], ErrEmptyPassphrase)
	assert.ErrorIs(t, p.rejected[1], ErrPassphraseMismatch)
	assert.ErrorIs(t, p.rejected[2], ErrReservedPassphrase)
	assert.Empty(t, p.remaining, "setup must not ask for an unlock attempt")

	info, err := os.Stat(filepath.Join(v.Paths().Dir, "vault.key"))
	require.NoError(t, err)
	assert.Equal(t, int64(storage.KeyFileSize), info.Size())
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	initialized, err = v.Initialized()
	require.NoError(t, err)
	assert.True(t, initialized)
}

func TestAuthenticate_SetupDoesNotOverwrite(t *testing.T) {
	v := newTestVault(t)
	setupVault(t, v)

	keyPath := filepath.Join(v.Paths().Dir, "vault.key")
	before, err := os.ReadFile(keyPath)
	require.NoError(t, err)

	p := &fakePrompter{attempts: []string{testPassphrase}}
	c, err := v.Authenticate(context.Background(), p)
	require.NoError(t, err)
	c.Close()
	assert.Zero(t, p.newCalls)

	after, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAuthenticate_UnlockSecondAttempt(t *testing.T) {
	v := newTestVault(t)
	setupVault(t, v)

	p := &fakePrompter{attempts: []string{"wrong", testPassphrase}}
	c, err := v.Authenticate(context.Background(), p)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, []int{3, 2}, p.remaining)
	require.Len(t, p.rejected, 1)
	assert.ErrorIs(t, p.rejected[0], ErrWrongPassphrase)
}

func TestAuthenticate_LockedOut(t *testing.T) {
	v := newTestVault(t)
	setupVault(t, v)

	p := &fakePrompter{attempts: []string{"a", "b", "c", testPassphrase}}
	c, err := v.Authenticate(context.Background(), p)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrLockedOut)
	assert.Equal(t, OutcomeLockedOut, OutcomeOf(err))
	assert.Equal(t, []int{3, 2, 1}, p.remaining, "exactly MaxAttempts prompts")
}

func TestAuthenticate_Cancel(t *testing.T) {
	v := newTestVault(t)
	setupVault(t, v)

	p := &fakePrompter{attempts: []string{"wrong", CancelWord, testPassphrase}}
	c, err := v.Authenticate(context.Background(), p)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, OutcomeCancelled, OutcomeOf(err))
	assert.Len(t, p.remaining, 2, "no prompt after cancel")
}

func TestAuthenticate_CorruptKeyFile(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, os.MkdirAll(v.Paths().Dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(v.Paths().Dir, "vault.key"), []byte("short"), 0600))

	p := &fakePrompter{attempts: []string{testPassphrase}}
	_, err := v.Authenticate(context.Background(), p)
	assert.ErrorIs(t, err, ErrIOFault)
	assert.Equal(t, OutcomeIOFault, OutcomeOf(err))
	assert.Empty(t, p.remaining)

	var fault *IOFaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "read", fault.Op)
	assert.ErrorIs(t, err, storage.ErrKeyFileCorrupt)
}

func TestAuthenticate_ContextCancelled(t *testing.T) {
	v := newTestVault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakePrompter{attempts: []string{testPassphrase}}
	_, err := v.Authenticate(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeCancelled, OutcomeOf(err))
	assert.Empty(t, p.remaining)
}

func TestUnlock(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()

	_, err := v.Unlock(ctx, []byte(testPassphrase))
	assert.ErrorIs(t, err, ErrNotInitialized)

	setupVault(t, v)

	_, err = v.Unlock(ctx, []byte("wrong"))
	assert.ErrorIs(t, err, ErrWrongPassphrase)

	c, err := v.Unlock(ctx, []byte(testPassphrase))
	require.NoError(t, err)
	c.Close()
}

func TestVaultID(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()

	_, err := v.VaultID(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)

	setupVault(t, v)
	id, err := v.VaultID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	again, err := v.VaultID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestCapabilityClose(t *testing.T) {
	var c *Capability
	c.Close()
	assert.False(t, c.usable())

	v := newTestVault(t)
	c = setupVault(t, v)
	assert.True(t, c.usable())
	c.Close()
	assert.False(t, c.usable())
	c.Close()
}

type countingProgress struct{ starts, stops int }

func (p *countingProgress) Start(string) { p.starts++ }
func (p *countingProgress) Stop()        { p.stops++ }

func TestWithProgress(t *testing.T) {
	progress := &countingProgress{}
	v := New(Paths{
		Dir:       t.TempDir(),
		KeyFile:   "vault.key",
		LogFile:   "passwords.log",
		IndexFile: "index.db",
	}, WithIterations(1000), WithProgress(progress))

	setupVault(t, v)
	_, err := v.Unlock(context.Background(), []byte("wrong"))
	require.ErrorIs(t, err, ErrWrongPassphrase)

	assert.Equal(t, 2, progress.starts)
	assert.Equal(t, progress.starts, progress.stops)
}
