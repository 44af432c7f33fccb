package occurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreDensity(t *testing.T) {
	rows := []map[string]string{
		{"scientificName": "Abra alba", "scientificNameID": "urn:100", "decimalLongitude": "4.21", "decimalLatitude": "51.13"},
		{"scientificName": "Abra alba", "scientificNameID": "urn:100", "decimalLongitude": "4.24", "decimalLatitude": "51.08"},
		{"scientificName": "Abra alba", "scientificNameID": "urn:100", "decimalLongitude": "4.16", "decimalLatitude": "51.12"},
		{"scientificName": "Mya arenaria", "scientificNameID": "urn:200", "decimalLongitude": "3.9", "decimalLatitude": "51.1"},
	}

	records, err := ExtractSpecies(rows, 1)
	require.NoError(t, err)
	require.Len(t, records, 2, "rows in the same rounded cell collapse to one record")

	ScoreDensity(records, rows, 1)

	require.NotNil(t, records[0].Density)
	assert.Equal(t, 3.0, *records[0].Density, "density counts every source row in the cell")
	require.NotNil(t, records[1].Density)
	assert.Equal(t, 1.0, *records[1].Density)

	assert.Nil(t, records[0].Suitability, "suitability stays null without an environmental layer")
}

func TestScoreDensityNullCoordinates(t *testing.T) {
	rows := []map[string]string{
		{"scientificName": "Abra alba", "scientificNameID": "urn:100", "decimalLongitude": "", "decimalLatitude": ""},
		{"scientificName": "Abra alba", "scientificNameID": "urn:100", "decimalLongitude": "", "decimalLatitude": ""},
	}

	records, err := ExtractSpecies(rows, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)

	ScoreDensity(records, rows, 1)

	require.NotNil(t, records[0].Density)
	assert.Equal(t, 2.0, *records[0].Density)
}
