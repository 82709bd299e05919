package main

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseTegrastats(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Stats
	}{
		{
			name: "full orin line",
			line: "RAM 1683/7762MB (lfb 2x4MB) CPU [11%@1113,8%@1113] GR3D_FREQ 15%@114 VIC_FREQ 0% SOC_TEMP 35.5C",
			expected: Stats{
				RAMUsedMB:       intPtr(1683),
				RAMTotalMB:      intPtr(7762),
				RAMUsedGB:       floatPtr(1.64),
				RAMTotalGB:      floatPtr(7.58),
				CPUUsagePercent: floatPtr(9.5),
				GPUUsagePercent: intPtr(15),
				SOCTempC:        floatPtr(35.5),
			},
		},
		{
			name:     "bare idle gpu",
			line:     "GR3D_FREQ 0%",
			expected: Stats{GPUUsagePercent: intPtr(0)},
		},
		{
			name:     "gpu without frequency suffix",
			line:     "GR3D_FREQ 42%",
			expected: Stats{GPUUsagePercent: intPtr(42)},
		},
		{
			name: "ram with colon separator",
			line: "RAM: 512/3964MB swap 0/1982MB",
			expected: Stats{
				RAMUsedMB:  intPtr(512),
				RAMTotalMB: intPtr(3964),
				RAMUsedGB:  floatPtr(0.5),
				RAMTotalGB: floatPtr(3.87),
			},
		},
		{
			name: "six core cpu average",
			line: "CPU [11%@1113,8%@1113,9%@1113,10%@1113,8%@1113,9%@1113]",
			expected: Stats{
				CPUUsagePercent: floatPtr(9.17),
			},
		},
		{
			name:     "empty cpu bracket emits nothing",
			line:     "CPU [] EMC_FREQ 0%",
			expected: Stats{},
		},
		{
			name:     "cpu bracket without frequencies emits nothing",
			line:     "CPU [off,off,off,off]",
			expected: Stats{},
		},
		{
			name:     "temperature only",
			line:     "cpu@33.5C SOC_TEMP 41.2C tj@42C",
			expected: Stats{SOCTempC: floatPtr(41.2)},
		},
		{
			name:     "integer temperature does not match",
			line:     "SOC_TEMP 41C",
			expected: Stats{},
		},
		{
			name:     "empty line",
			line:     "",
			expected: Stats{},
		},
		{
			name:     "unrelated text",
			line:     "tegrastats: command starting up",
			expected: Stats{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := parseTegrastats(test.line)
			if !reflect.DeepEqual(got, test.expected) {
				t.Errorf("parseTegrastats(%q) = %+v, want %+v", test.line, statsString(got), statsString(test.expected))
			}
		})
	}
}

// Permuting the recognizable fields within a line must not change the
// result: every extraction is independent of the others.
func TestParseTegrastatsOrderIndependent(t *testing.T) {
	lines := []string{
		"RAM 1683/7762MB CPU [11%@1113,8%@1113] GR3D_FREQ 15%@114 SOC_TEMP 35.5C",
		"SOC_TEMP 35.5C GR3D_FREQ 15%@114 CPU [11%@1113,8%@1113] RAM 1683/7762MB",
		"GR3D_FREQ 15%@114 RAM 1683/7762MB SOC_TEMP 35.5C CPU [11%@1113,8%@1113]",
	}

	first := parseTegrastats(lines[0])
	if first.Empty() {
		t.Fatal("expected metrics from first permutation")
	}
	for _, line := range lines[1:] {
		got := parseTegrastats(line)
		if !reflect.DeepEqual(got, first) {
			t.Errorf("parseTegrastats(%q) = %s, want %s", line, statsString(got), statsString(first))
		}
	}
}

func TestStatsEmpty(t *testing.T) {
	if !(Stats{}).Empty() {
		t.Error("zero Stats should be empty")
	}
	if (Stats{GPUUsagePercent: intPtr(0)}).Empty() {
		t.Error("a present zero metric is not empty")
	}
}

// statsString renders pointer fields by value for readable failures.
func statsString(s Stats) string {
	b, _ := json.Marshal(s)
	return string(b)
}
