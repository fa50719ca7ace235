package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/aluconfig/internal/engine"
)

const twinProducts = `
- id: a
  slug: a.php
  category: janela
  opening_system: giro
  has_blind: nao
  blind_motorization: null
  fill_material: vidro
  leaf_count: 1
- id: b
  slug: b.php
  category: janela
  opening_system: giro
  has_blind: nao
  blind_motorization: null
  fill_material: vidro
  leaf_count: 1
- id: c
  slug: c.php
  category: janela
  opening_system: giro
  has_blind: nao
  blind_motorization: null
  fill_material: vidro
  leaf_count: 2
`

func noConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "none.yaml")
}

func TestValidateCatalog_BuiltIn(t *testing.T) {
	eng, err := engine.Default()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, validateCatalog(&out, eng))
	assert.Contains(t, out.String(), "Catalog is valid: 27 products, 6 questions")
	assert.NotContains(t, out.String(), "has no label")
}

func TestCatalogValidateCommand_Twins(t *testing.T) {
	products := writeFile(t, "products.yaml", twinProducts)
	cfg := writeFile(t, "aluconfig.yaml", "catalog_path: "+products+"\n")

	out, _, err := execute(t, "--config", cfg, "--env-file", "", "catalog", "validate")
	require.Error(t, err)
	assert.Contains(t, out, "a cannot be told apart from: b")
	assert.Contains(t, out, "b cannot be told apart from: a")
	assert.NotContains(t, out, "c cannot")
	assert.Contains(t, out, "2 of 3 products unreachable")
}

func TestCatalogValidateCommand_BadCatalog(t *testing.T) {
	products := writeFile(t, "products.yaml", "- id: x\n")
	cfg := writeFile(t, "aluconfig.yaml", "catalog_path: "+products+"\n")

	_, _, err := execute(t, "--config", cfg, "--env-file", "", "catalog", "validate")
	assert.Error(t, err)
}

func TestCatalogListCommand(t *testing.T) {
	out, _, err := execute(t, "--config", noConfig(t), "--env-file", "", "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "j-correr-persiana-motorizada-vidro-2")
	assert.Contains(t, out, "Janela · De Correr · Com Persiana · Motorizada · Vidro · 2 Folhas")
	assert.Contains(t, out, "27 products")
}

func TestCatalogListCommand_JSON(t *testing.T) {
	out, _, err := execute(t, "--config", noConfig(t), "--env-file", "", "catalog", "list", "--json")
	require.NoError(t, err)

	var views []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 27)
	assert.NotEmpty(t, views[0]["id"])
	assert.NotEmpty(t, views[0]["url"])
}

func TestSelectionsFor_SkipsInapplicableFacets(t *testing.T) {
	eng, err := engine.Default()
	require.NoError(t, err)

	p, ok := eng.Catalog().Lookup("j-correr-persiana-motorizada-vidro-2")
	require.True(t, ok)
	assert.Equal(t, 6, selectionsFor(eng, p).Len())

	for _, p := range eng.Catalog().Products() {
		if p.BlindMotorization == nil {
			assert.Equal(t, 5, selectionsFor(eng, p).Len(), p.ID)
		}
	}
}
