package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/timeoff-sync/internal/config"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/kvstore"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/lock"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET_KEY", "test-secret-key-for-jwt")
	t.Setenv("HR_BASE_URL", "https://hr.example.com/v1")
	t.Setenv("HR_CLIENT_ID", "id")
	t.Setenv("HR_CLIENT_SECRET", "secret")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/sa.json")
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "timeoff-sync", cmd.Use)

	for _, name := range []string{"serve", "run", "token"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
}

func TestTokenCommand(t *testing.T) {
	setRequiredEnv(t)
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"token", "--subject", "ops@example.com"})

	require.NoError(t, cmd.Execute())

	token := strings.TrimSpace(out.String())
	parsed, err := jwtauth.VerifyToken(jwtauth.New("HS256", []byte("test-secret-key-for-jwt"), nil), token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", parsed.Subject())
	assert.Contains(t, errOut.String(), "expires")
}

func TestTokenCommand_InvalidSubject(t *testing.T) {
	setRequiredEnv(t)
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--subject", "ops"})

	assert.Error(t, cmd.Execute())
}

func TestRunCommand_MissingServiceAccount(t *testing.T) {
	setRequiredEnv(t)
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "service account")
	assert.Empty(t, out.String())
}

func TestOpenStore(t *testing.T) {
	ctx := t.Context()

	t.Run("memory", func(t *testing.T) {
		store, mutex, closeFn, err := openStore(ctx, &config.Config{Store: config.StoreConfig{Driver: "memory"}})
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &kvstore.MemoryStore{}, store)
		assert.IsType(t, &lock.MemoryMutex{}, mutex)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sync.db")
		store, mutex, closeFn, err := openStore(ctx, &config.Config{Store: config.StoreConfig{Driver: "sqlite", SQLitePath: path}})
		require.NoError(t, err)
		defer closeFn()
		require.NotNil(t, mutex)

		require.NoError(t, store.Put(ctx, "k", "v", 0))
		value, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", value)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, _, err := openStore(ctx, &config.Config{Store: config.StoreConfig{Driver: "redis"}})
		assert.Error(t, err)
	})
}
