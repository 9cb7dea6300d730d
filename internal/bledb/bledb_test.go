package bledb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/bleio/internal/bledb"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases short form",
			input: "180D",
			want:  "180d",
		},
		{
			name:  "strips braces",
			input: "{180D}",
			want:  "180d",
		},
		{
			name:  "strips 0x prefix",
			input: "0x180D",
			want:  "180d",
		},
		{
			name:  "collapses SIG base UUID to short form",
			input: "0000180D-0000-1000-8000-00805F9B34FB",
			want:  "180d",
		},
		{
			name:  "keeps vendor 128-bit UUID full length",
			input: "6E400001-B5A3-F393-E0A9-E50E24DCCA9E",
			want:  "6e400001b5a3f393e0a9e50e24dcca9e",
		},
		{
			name:  "keeps non-base UUID with SIG-looking prefix",
			input: "0000180D-0000-1000-8000-00805F9B34FC",
			want:  "0000180d00001000800000805f9b34fc",
		},
		{
			name:  "already normalized input is unchanged",
			input: "2a37",
			want:  "2a37",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bledb.NormalizeUUID(tt.input))
		})
	}
}

func TestNormalizeUUIDs(t *testing.T) {
	got := bledb.NormalizeUUIDs([]string{"180D", "0000180F-0000-1000-8000-00805F9B34FB"})
	assert.Equal(t, []string{"180d", "180f"}, got)
}

func TestLookups(t *testing.T) {
	t.Run("service", func(t *testing.T) {
		assert.Equal(t, "Heart Rate", bledb.LookupService("180D"))
		assert.Equal(t, "Battery", bledb.LookupService("0000180F-0000-1000-8000-00805F9B34FB"))
		assert.Equal(t, "", bledb.LookupService("ffff"))
	})

	t.Run("characteristic", func(t *testing.T) {
		assert.Equal(t, "Heart Rate Measurement", bledb.LookupCharacteristic("2A37"))
		assert.Equal(t, "Battery Level", bledb.LookupCharacteristic("2a19"))
		assert.Equal(t, "", bledb.LookupCharacteristic("6e400001b5a3f393e0a9e50e24dcca9e"))
	})

	t.Run("descriptor", func(t *testing.T) {
		assert.Equal(t, "Client Characteristic Configuration", bledb.LookupDescriptor("2902"))
		assert.Equal(t, "", bledb.LookupDescriptor("1234"))
	})
}
