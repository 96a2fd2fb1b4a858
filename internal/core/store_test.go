package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/illarion/pwvault/internal/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(t *testing.T, service string) Record {
	t.Helper()
	pw, err := generator.New(nil).GenerateWith(16, "")
	require.NoError(t, err)
	return NewRecord(service, pw, "")
}

func readLog(t *testing.T, v *Vault) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(v.Paths().Dir, v.Paths().LogFile))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return data
}

func TestSave_RoundTrip(t *testing.T) {
	v := newTestVault(t)
	c := setupVault(t, v)
	ctx := context.Background()

	first := testRecord(t, "example.com")
	require.NoError(t, v.Save(ctx, c, first))

	afterFirst := readLog(t, v)
	assert.Equal(t, 1, bytes.Count(afterFirst, []byte("\n")))
	assert.NotContains(t, string(afterFirst), first.Password)
	assert.NotContains(t, string(afterFirst), "example.com")

	second := testRecord(t, "mail")
	require.NoError(t, v.Save(ctx, c, second))

	afterSecond := readLog(t, v)
	assert.Equal(t, 2, bytes.Count(afterSecond, []byte("\n")))
	assert.True(t, bytes.HasPrefix(afterSecond, afterFirst), "earlier entries must be untouched")

	// a fresh session decrypts what the first one wrote
	unlocked, err := v.Authenticate(ctx, &fakePrompter{attempts: []string{testPassphrase}})
	require.NoError(t, err)
	defer unlocked.Close()

	records, err := v.Records(ctx, unlocked)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.Service, records[0].Service)
	assert.Equal(t, first.Password, records[0].Password)
	assert.Equal(t, 16, records[0].Length)
	assert.Equal(t, 94, records[0].PoolSize)
	assert.InDelta(t, first.Entropy, records[0].Entropy, 0.005)
	assert.Equal(t, second.Password, records[1].Password)
}

func TestSave_Locked(t *testing.T) {
	v := newTestVault(t)
	c := setupVault(t, v)
	c.Close()

	err := v.Save(context.Background(), c, testRecord(t, "example.com"))
	assert.ErrorIs(t, err, ErrLocked)
	assert.Nil(t, readLog(t, v))

	_, err = v.Records(context.Background(), nil)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestSave_InvalidRecord(t *testing.T) {
	v := newTestVault(t)
	c := setupVault(t, v)

	rec := testRecord(t, "line\nbreak")
	err := v.Save(context.Background(), c, rec)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Nil(t, readLog(t, v))
}

func TestSave_FailureLeavesLogUnchanged(t *testing.T) {
	v := newTestVault(t)
	c := setupVault(t, v)
	ctx := context.Background()

	require.NoError(t, v.Save(ctx, c, testRecord(t, "example.com")))
	before := readLog(t, v)

	// an index that cannot be opened fails the save after the log append
	indexPath := filepath.Join(v.Paths().Dir, v.Paths().IndexFile)
	require.NoError(t, os.Remove(indexPath))
	require.NoError(t, os.Mkdir(indexPath, 0700))

	err := v.Save(ctx, c, testRecord(t, "mail"))
	assert.ErrorIs(t, err, ErrIOFault)
	assert.Equal(t, OutcomeIOFault, OutcomeOf(err))
	assert.Equal(t, before, readLog(t, v))
}

func TestRecords_Empty(t *testing.T) {
	v := newTestVault(t)
	c := setupVault(t, v)

	records, err := v.Records(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecords_CorruptEntry(t *testing.T) {
	v := newTestVault(t)
	c := setupVault(t, v)
	ctx := context.Background()

	require.NoError(t, v.Save(ctx, c, testRecord(t, "example.com")))
	f, err := os.OpenFile(filepath.Join(v.Paths().Dir, v.Paths().LogFile), os.O_WRONLY|os.O_APPEND, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("bm90IGEgdmFsaWQgdG9rZW4=\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = v.Records(ctx, c)
	assert.ErrorIs(t, err, ErrCorruptEntry)
	assert.Contains(t, err.Error(), "entry 2")
}

func TestStatus(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()

	st, err := v.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Initialized)
	_, err = os.Stat(v.Paths().Dir)
	assert.True(t, os.IsNotExist(err), "status must not create the vault")

	c := setupVault(t, v)
	require.NoError(t, v.Save(ctx, c, testRecord(t, "a")))
	require.NoError(t, v.Save(ctx, c, testRecord(t, "b")))

	st, err = v.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Initialized)
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, 2, st.Indexed)
	assert.NotEmpty(t, st.VaultID)
	assert.False(t, st.Created.IsZero())
	assert.False(t, st.LastSaved.IsZero())
	assert.Equal(t, int64(len(readLog(t, v))), st.LogSize)
	assert.True(t, st.Consistent())

	// rewrite the first entry in place
	logPath := filepath.Join(v.Paths().Dir, v.Paths().LogFile)
	data := readLog(t, v)
	data[0] ^= 0x01
	require.NoError(t, os.WriteFile(logPath, data, 0600))

	st, err = v.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, st.Mismatched)
	assert.False(t, st.Consistent())
}

func TestSave_FirstSaveFailureLeavesNoLog(t *testing.T) {
	v := newTestVault(t)
	c := setupVault(t, v)

	indexPath := filepath.Join(v.Paths().Dir, v.Paths().IndexFile)
	require.NoError(t, os.Remove(indexPath))
	require.NoError(t, os.Mkdir(indexPath, 0700))

	err := v.Save(context.Background(), c, testRecord(t, "example.com"))
	assert.ErrorIs(t, err, ErrIOFault)

	_, err = os.Stat(filepath.Join(v.Paths().Dir, v.Paths().LogFile))
	assert.True(t, os.IsNotExist(err), "a failed first save must not leave an empty log")
}

func TestStatus_MissingIndex(t *testing.T) {
	v := newTestVault(t)
	c := setupVault(t, v)
	ctx := context.Background()
	require.NoError(t, v.Save(ctx, c, testRecord(t, "a")))

	indexPath := filepath.Join(v.Paths().Dir, v.Paths().IndexFile)
	require.NoError(t, os.Remove(indexPath))

	st, err := v.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Initialized)
	assert.True(t, st.IndexMissing)
	assert.Equal(t, 1, st.Entries)
	assert.Zero(t, st.Indexed)
	assert.Empty(t, st.VaultID)
	assert.False(t, st.Consistent())

	_, err = os.Stat(indexPath)
	assert.True(t, os.IsNotExist(err), "status must not recreate the index")
}

func TestStatus_KeepsVaultID(t *testing.T) {
	v := newTestVault(t)
	setupVault(t, v)
	ctx := context.Background()

	id, err := v.VaultID(ctx)
	require.NoError(t, err)

	indexPath := filepath.Join(v.Paths().Dir, v.Paths().IndexFile)
	before, err := os.ReadFile(indexPath)
	require.NoError(t, err)

	st, err := v.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, st.VaultID)

	after, err := os.ReadFile(indexPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "status must not write to the index")
}

func TestStatus_CorruptMiddleEntry(t *testing.T) {
	v := newTestVault(t)
	c := setupVault(t, v)
	ctx := context.Background()

	for _, service := range []string{"a", "b", "c"} {
		require.NoError(t, v.Save(ctx, c, testRecord(t, service)))
	}

	logPath := filepath.Join(v.Paths().Dir, v.Paths().LogFile)
	data := readLog(t, v)
	second := bytes.IndexByte(data, '\n') + 1
	data[second+3] ^= 0x01
	require.NoError(t, os.WriteFile(logPath, data, 0600))

	st, err := v.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Entries)
	assert.Equal(t, 3, st.Indexed)
	assert.Equal(t, []uint64{2}, st.Mismatched)
	assert.False(t, st.Consistent())
}

func TestStatus_ShiftedLog(t *testing.T) {
	v := newTestVault(t)
	c := setupVault(t, v)
	ctx := context.Background()

	require.NoError(t, v.Save(ctx, c, testRecord(t, "a")))
	require.NoError(t, v.Save(ctx, c, testRecord(t, "b")))

	// dropping the first entry moves the second one to a new offset
	logPath := filepath.Join(v.Paths().Dir, v.Paths().LogFile)
	data := readLog(t, v)
	rest := data[bytes.IndexByte(data, '\n')+1:]
	require.NoError(t, os.WriteFile(logPath, rest, 0600))

	st, err := v.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, []uint64{1, 2}, st.Mismatched)
}
