package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/recommender/internal/catalog"
)

const sampleCSV = `Product_ID,Product_Name,Category,Color,Size,Material,Price
1,Shirt,Men's Clothing,Blue,M,Cotton,20
2,Hoodie,Men's Clothing,Blue,L,Cotton,45
3,Dress,Women's Clothing,Red,S,Silk,70
`

func TestLoad(t *testing.T) {
	items, err := catalog.Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, catalog.Item{
		RowIndex:    0,
		ProductName: "Shirt",
		Category:    "Men's Clothing",
		Color:       "Blue",
		Size:        "M",
		Material:    "Cotton",
		FeatureText: "Men's Clothing Blue M Cotton",
	}, items[0])

	for i, item := range items {
		assert.Equal(t, i, item.RowIndex)
	}
	assert.Equal(t, "Women's Clothing Red S Silk", items[2].FeatureText)
}

func TestLoad_ColumnOrderAndBOM(t *testing.T) {
	data := "\ufeffMaterial, Size ,Color,Category,Product_Name\nWool,XL,Black,Men's Clothing,Coat\n"

	items, err := catalog.Load(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Coat", items[0].ProductName)
	assert.Equal(t, "Men's Clothing Black XL Wool", items[0].FeatureText)
}

func TestLoad_PreservesEmptyFields(t *testing.T) {
	data := "Product_Name,Category,Color,Size,Material\nScarf,Accessories,,,Wool\n"

	items, err := catalog.Load(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "Accessories   Wool", items[0].FeatureText)
}

func TestLoad_HeaderOnly(t *testing.T) {
	items, err := catalog.Load(strings.NewReader("Product_Name,Category,Color,Size,Material\n"))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Empty source", ""},
		{"Missing column", "Product_Name,Category,Color,Size\nShirt,Men's Clothing,Blue,M\n"},
		{"Ragged row", "Product_Name,Category,Color,Size,Material\nShirt,Men's Clothing,Blue\n"},
		{"Bad quoting", "Product_Name,Category,Color,Size,Material\n\"Shirt,Men's Clothing,Blue,M,Cotton\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := catalog.Load(strings.NewReader(tt.data))
			assert.Nil(t, items)

			var loadErr *catalog.DataLoadError
			assert.True(t, errors.As(err, &loadErr), "expected DataLoadError, got %v", err)
		})
	}
}

func TestLoad_MissingColumnIsIdentifiable(t *testing.T) {
	_, err := catalog.Load(strings.NewReader("Product_Name,Category,Color\nShirt,Men's Clothing,Blue\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrMissingColumn)
	assert.Contains(t, err.Error(), "Size")
	assert.Contains(t, err.Error(), "Material")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clothes.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	items, err := catalog.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestLoadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")

	_, err := catalog.LoadFile(path)
	var loadErr *catalog.DataLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, path, loadErr.Source)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
