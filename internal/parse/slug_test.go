package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	testCases := map[string]string{
		"Grand Hotel":       "grand_hotel",
		"  ACME Co., Ltd. ": "acme_co_ltd",
		"Spa #2":            "spa_2",
		"Café Noir":         "café_noir",
		"Müller GmbH":       "müller_gmbh",
		"株式会社アロマ":           "株式会社アロマ",
		"!!!":               "",
	}
	for in, expected := range testCases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, expected, Slug(in))
		})
	}
}
