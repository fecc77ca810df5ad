package fixtures

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/harbor-usertools/pkg/provision"
)

func TestGenerate_FullSet(t *testing.T) {
	var buf bytes.Buffer
	n, err := Generate(&buf, Users(), -1)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	assert.Equal(t, "Username,Password,Role,Project\n"+
		"alice,Passw0rd!,developer,demo\n"+
		"bob,S3cret!,guest,demo\n"+
		"carol,TopSecret1,maintainer,demo\n"+
		"dave,InitPass9,projectAdmin,ops\n"+
		"eve,EvePass#1,developer,ops\n"+
		"frank,Temp1234,guest,\n", buf.String())
}

func TestGenerate_Cycles(t *testing.T) {
	var buf bytes.Buffer
	n, err := Generate(&buf, Users(), 8)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "alice,Passw0rd!,developer,demo", lines[7])
	assert.Equal(t, "bob,S3cret!,guest,demo", lines[8])
}

func TestGenerate_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	n, err := Generate(&buf, ThreeColumnUsers(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "Username,Password,Role\n", buf.String())
}

func TestGenerate_EmptySet(t *testing.T) {
	_, err := Generate(&bytes.Buffer{}, Set{Header: []string{"Username"}}, 3)
	assert.Error(t, err)
}

func TestWriteFile_ThreeColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultOutputThreeCols)
	n, err := WriteFile(path, ThreeColumnUsers(), -1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Username,Password,Role\n"+
		"alice,Alice1234,admin\n"+
		"bob,Bob12345,guest\n"+
		"carol,Carol123,maintainer\n"+
		"dave,Dave1234,developer\n", string(content))
}

func TestWriteFile_BadPath(t *testing.T) {
	_, err := WriteFile(filepath.Join(t.TempDir(), "missing", "out.csv"), Users(), -1)
	assert.Error(t, err)
}

// Generated files must be valid provisioning input
func TestGenerate_ReadableByProvision(t *testing.T) {
	for _, set := range []Set{Users(), ThreeColumnUsers()} {
		var buf bytes.Buffer
		_, err := Generate(&buf, set, -1)
		require.NoError(t, err)

		records, err := provision.ReadRecords(&buf)
		require.NoError(t, err)
		require.Len(t, records, len(set.Users))

		for _, rec := range records {
			row := provision.NewRow(rec, nil)
			assert.NoError(t, row.Validate())
			_, err := provision.ResolveRole(row.RoleToken)
			assert.NoError(t, err, rec.Role)
		}
	}
}
