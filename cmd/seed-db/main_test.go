package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProducts(t *testing.T) {
	products, err := decodeProducts([]byte(`[
		{"id":"a","name":"A","price":14999.5,"countInStock":3,"extra":{"x":1}},
		{"id":"b","name":"B","price":10,"category":"Men","image":"/b.jpg"}
	]`))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "a", products[0].ID)
	assert.Equal(t, "14999.5", products[0].Price.String())
	assert.Equal(t, 3, products[0].CountInStock)
	assert.Equal(t, "Men", products[1].Category)
	assert.Equal(t, "/b.jpg", products[1].Image)
}

func TestDecodeProducts_Errors(t *testing.T) {
	_, err := decodeProducts([]byte(`[{"name":"no id","price":1}]`))
	assert.ErrorContains(t, err, "id is required")

	_, err = decodeProducts([]byte(`[{"id":"a","price":"cheap"}]`))
	assert.ErrorContains(t, err, "price")
}

func TestSeedCatalogFile(t *testing.T) {
	data, err := os.ReadFile("../../db/seed/products.json")
	require.NoError(t, err)

	products, err := decodeProducts(data)
	require.NoError(t, err)
	assert.NotEmpty(t, products)
	for _, p := range products {
		assert.False(t, p.Price.IsNegative(), p.ID)
	}
}

func TestSampleCoupons(t *testing.T) {
	codes := make(map[string]bool)
	for _, c := range sampleCoupons() {
		assert.True(t, c.DiscountType.Valid(), c.Code)
		codes[c.Code] = true
	}
	assert.True(t, codes["SAVE10"])
}
