package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv points the CLI at a scratch directory and returns the database path
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)

	dbPath := filepath.Join(dir, "instance", "test.db")
	t.Setenv("PVV_DATABASE_PATH", dbPath)
	t.Setenv("PVV_LOGGING_OUTPUT", "stderr")
	t.Setenv("PVV_LOGGING_LEVEL", "error")
	t.Setenv("PVV_ANNOTATION_BATCH_DELAY", "0s")
	return dbPath
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitDB(t *testing.T) {
	dbPath := setupEnv(t)

	out, err := execute(t, "", "init-db")
	require.NoError(t, err)
	assert.Contains(t, out, "Database initialised")
	assert.FileExists(t, dbPath)

	_, err = execute(t, "", "init-db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Contains(t, err.Error(), "reset-db")
}

func TestResetDB(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "", "init-db")
	require.NoError(t, err)

	t.Run("declined", func(t *testing.T) {
		out, err := execute(t, "no\n", "reset-db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "aborting")
		assert.Contains(t, out, "WARNING")
	})

	t.Run("confirmed", func(t *testing.T) {
		out, err := execute(t, "yes\n", "reset-db")
		require.NoError(t, err)
		assert.Contains(t, out, "Database reset")
	})

	t.Run("yes flag", func(t *testing.T) {
		out, err := execute(t, "", "reset-db", "--yes")
		require.NoError(t, err)
		assert.NotContains(t, out, "Type 'yes'")
	})
}

func TestLoadVCFs(t *testing.T) {
	setupEnv(t)

	vcfDir := filepath.Join(t.TempDir(), "vcfs")
	require.NoError(t, os.MkdirAll(vcfDir, 0o755))
	vcf := "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"4\t89835580\t.\tC\tT\t.\tPASS\t.\n" +
		"17\t45983420\trs63750424\tG\tT\t.\tPASS\t.\n"
	require.NoError(t, os.WriteFile(filepath.Join(vcfDir, "Patient3.vcf"), []byte(vcf), 0o644))

	out, err := execute(t, "", "load-vcfs", "--dir", vcfDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 variants")

	t.Run("reloading skips duplicates", func(t *testing.T) {
		out, err := execute(t, "", "load-vcfs", "--dir", vcfDir)
		require.NoError(t, err)
		assert.Contains(t, out, "Loaded 0 variants")
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := execute(t, "", "load-vcfs", "--dir", filepath.Join(vcfDir, "missing"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})
}

func TestLookup(t *testing.T) {
	setupEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/esearch.fcgi", r.URL.Path)
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<eSearchResult><Count>0</Count><IdList></IdList></eSearchResult>`))
	}))
	defer server.Close()
	t.Setenv("PVV_EXTERNAL_API_CLINVAR_BASE_URL", server.URL+"/")

	out, err := execute(t, "", "lookup", "NC_000004.12:g.89835580C>T")
	require.NoError(t, err)
	assert.Contains(t, out, "CLINICAL_SIGNIFICANCE")
	assert.Contains(t, out, "Not found")
	assert.Contains(t, out, "NC_000004.12:g.89835580C>T")

	t.Run("yaml keeps column order", func(t *testing.T) {
		out, err := execute(t, "", "lookup", "--format", "yaml", "NC_000004.12:g.89835580C>T")
		require.NoError(t, err)
		assert.Contains(t, out, "CLINICAL_SIGNIFICANCE: Not found")
		assert.Contains(t, out, "CHROM: null")
		assert.Less(t, strings.Index(out, "CHROM:"), strings.Index(out, "GENE_SYMBOL:"))
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "", "lookup", "-f", "json", "NC_000004.12:g.89835580C>T")
		require.NoError(t, err)
		assert.Contains(t, out, `"clinical_significance": "Not found"`)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := execute(t, "", "lookup", "--format", "xml", "NC_000004.12:g.89835580C>T")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format")
	})

	t.Run("requires an argument", func(t *testing.T) {
		_, err := execute(t, "", "lookup")
		require.Error(t, err)
	})
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("chdir: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("chdir: restoring %s: %v", prev, err)
		}
	})
}
