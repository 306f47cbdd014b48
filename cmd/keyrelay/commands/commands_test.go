package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateUploadTakeDelete(t *testing.T) {
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "keys.db")
	uploadPath := filepath.Join(dir, "upload.json")
	account := domain.NewAccountID().String()

	_, err := run(t, "generate", "--ec", "3", "--pq", "2", "--out", uploadPath, "--passphrase", "Hunter2-correct")
	assert.NoError(t, err)

	var f uploadFile
	assert.NoError(t, readJSON(uploadPath, &f))
	assert.Equal(t, 3, len(f.ECOneTime))
	assert.Equal(t, 2, len(f.PQOneTime))
	assert.Equal(t, domain.KeyID(3), f.PQLastResort.KeyID)
	assert.True(t, f.verify(crypto.Ed25519Verifier{}))

	sealed, err := os.ReadFile(uploadPath + ".secret")
	assert.NoError(t, err)
	raw, err := crypto.Open("Hunter2-correct", sealed)
	assert.NoError(t, err)
	var secret secretFile
	assert.NoError(t, json.Unmarshal(raw, &secret))
	assert.Equal(t, 3, len(secret.ECOneTime))
	assert.Equal(t, 2, len(secret.PQOneTime))

	_, err = run(t, "--dsn", dsn, "migrate")
	assert.NoError(t, err)
	_, err = run(t, "--dsn", dsn, "upload", "-a", account, "-f", uploadPath)
	assert.NoError(t, err)

	out, err := run(t, "--dsn", dsn, "take", "-a", account)
	assert.NoError(t, err)
	var bundle bundleView
	assert.NoError(t, json.Unmarshal([]byte(out), &bundle))
	assert.Equal(t, f.ECOneTime[0], *bundle.EC)
	assert.Equal(t, f.PQOneTime[0], *bundle.PQ)
	assert.Equal(t, *f.ECSigned, *bundle.ECSigned)

	out, err = run(t, "--dsn", dsn, "status", "-a", account, "-d", "1,2")
	assert.NoError(t, err)
	var status accountStatus
	assert.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, []domain.DeviceID{1}, status.PQEnabledDevices)
	assert.Equal(t, 2, len(status.Devices))
	assert.Equal(t, deviceStatus{
		Device:     1,
		ECCount:    2,
		PQCount:    1,
		PQEnabled:  true,
		LastResort: &keyView{KeyID: 3, Fingerprint: crypto.Fingerprint(f.PQLastResort.PublicKey)},
		ECSigned:   &keyView{KeyID: 1, Fingerprint: crypto.Fingerprint(f.ECSigned.PublicKey)},
	}, status.Devices[0])
	assert.Equal(t, deviceStatus{Device: 2}, status.Devices[1])

	_, err = run(t, "--dsn", dsn, "delete", "-a", account)
	assert.NoError(t, err)
	out, err = run(t, "--dsn", dsn, "status", "-a", account)
	assert.NoError(t, err)
	status = accountStatus{}
	assert.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 0, len(status.PQEnabledDevices))
	assert.Equal(t, deviceStatus{Device: 1}, status.Devices[0])
}

func TestUploadRejectsBadSignature(t *testing.T) {
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "keys.db")
	uploadPath := filepath.Join(dir, "upload.json")
	account := domain.NewAccountID().String()

	_, err := run(t, "generate", "--ec", "1", "--pq", "1", "--out", uploadPath)
	assert.NoError(t, err)
	_, err = os.Stat(uploadPath + ".secret")
	assert.True(t, os.IsNotExist(err))

	var f uploadFile
	assert.NoError(t, readJSON(uploadPath, &f))
	f.PQOneTime[0].PublicKey[0] ^= 0xff
	assert.NoError(t, writeJSON(uploadPath, f, 0o644))

	_, err = run(t, "--dsn", dsn, "migrate")
	assert.NoError(t, err)
	_, err = run(t, "--dsn", dsn, "upload", "-a", account, "-f", uploadPath)
	assert.IsError(t, err, errBadSignature)

	out, err := run(t, "--dsn", dsn, "status", "-a", account)
	assert.NoError(t, err)
	var status accountStatus
	assert.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, deviceStatus{Device: 1}, status.Devices[0])
}

func TestGenerateRejectsWeakPassphrase(t *testing.T) {
	uploadPath := filepath.Join(t.TempDir(), "upload.json")
	_, err := run(t, "generate", "--out", uploadPath, "--passphrase", "hunter2")
	assert.IsError(t, err, crypto.ErrWeakPassphrase)
	_, err = os.Stat(uploadPath)
	assert.True(t, os.IsNotExist(err))
}

func TestInvalidAccount(t *testing.T) {
	_, err := run(t, "--dsn", "file::memory:", "take", "-a", "not-a-uuid")
	assert.Error(t, err)
}
