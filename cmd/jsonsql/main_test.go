package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Run("stdin", func(t *testing.T) {
		var out bytes.Buffer
		in := strings.NewReader(`{"type":"select","table":"users","fields":["name","age"],"condition":{"age":{"$gt":18}}}`)
		require.NoError(t, run([]string{"build", "-dialect", "postgresql", "-positional"}, in, &out))
		assert.Contains(t, out.String(), `select "name", "age" from "users" where "age" > $1;`)
		assert.Contains(t, out.String(), "18")
	})

	t.Run("raw", func(t *testing.T) {
		var out bytes.Buffer
		in := strings.NewReader(`{"type":"remove","table":"users","condition":{"name":"o'hara"}}`)
		require.NoError(t, run([]string{"build", "-raw"}, in, &out))
		assert.Equal(t, "delete from \"users\" where \"name\" = 'o''hara';\n", out.String())
	})

	t.Run("invalid descriptor", func(t *testing.T) {
		var out bytes.Buffer
		err := run([]string{"build"}, strings.NewReader(`{"type":"insert"}`), &out)
		assert.Error(t, err)
	})

	t.Run("unknown command", func(t *testing.T) {
		var out bytes.Buffer
		assert.Error(t, run([]string{"bogus"}, nil, &out))
		assert.Contains(t, out.String(), "usage: jsonsql")
	})
}

func TestExecAndMigrate(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "db.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("dialect: sqlite\ndsn: "+filepath.Join(dir, "node.db")+"\n"), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"migrate", "-config", cfg}, nil, &out))
	assert.Contains(t, out.String(), "created trs")

	out.Reset()
	insert := `{"type":"insert","table":"trs","values":{"id":"1","block_id":"b","type":0,"timestamp":1,"sender_id":"1L"}}`
	require.NoError(t, run([]string{"exec", "-config", cfg}, strings.NewReader(insert), &out))
	assert.Equal(t, "1 rows affected\n", out.String())

	out.Reset()
	query := `{"type":"select","table":"trs","fields":["id","sender_id"]}`
	require.NoError(t, run([]string{"exec", "-config", cfg}, strings.NewReader(query), &out))
	assert.Contains(t, out.String(), "1L")

	err := run([]string{"exec", "-config", cfg}, strings.NewReader(`{"type":1,"table":"trs"}`), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type must be a string")

	assert.Error(t, run([]string{"exec"}, nil, &out))
}
