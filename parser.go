package main

import (
	"math"
	"regexp"
	"strconv"
)

// Stats holds the metrics parsed from a single tegrastats line. All fields
// are optional: a field is present only when its pattern matched, and a
// present zero (e.g. an idle GPU) still serializes.
type Stats struct {
	RAMUsedMB       *int     `json:"ram_used_mb,omitempty"`
	RAMTotalMB      *int     `json:"ram_total_mb,omitempty"`
	RAMUsedGB       *float64 `json:"ram_used_gb,omitempty"`
	RAMTotalGB      *float64 `json:"ram_total_gb,omitempty"`
	CPUUsagePercent *float64 `json:"cpu_usage_percent,omitempty"`
	GPUUsagePercent *int     `json:"gpu_usage_percent,omitempty"`
	SOCTempC        *float64 `json:"soc_temp_c,omitempty"`
}

// Empty reports whether no metric at all was recognized. Callers treat an
// empty result as a parse failure.
func (s Stats) Empty() bool {
	return s == Stats{}
}

var (
	// RAM 1683/7762MB (the separator after RAM varies between releases)
	ramRe = regexp.MustCompile(`RAM[:\s]+(\d+)/(\d+)MB`)
	// CPU [11%@1113,8%@1113,...]
	cpuRe     = regexp.MustCompile(`CPU \[([^\]]*)\]`)
	cpuCoreRe = regexp.MustCompile(`(\d+)%@\d+`)
	// GR3D_FREQ 15%@114 or bare GR3D_FREQ 0%
	gpuRe = regexp.MustCompile(`GR3D_FREQ (\d+)%(?:@\d+)?`)
	// SOC_TEMP 35.5C
	tempRe = regexp.MustCompile(`SOC_TEMP (\d+\.\d+)C`)
)

// parseTegrastats extracts every recognizable metric from one line of
// tegrastats output. Each pattern is independent: missing fields are simply
// omitted, surrounding text and field order do not matter.
func parseTegrastats(line string) Stats {
	var stats Stats

	if m := ramRe.FindStringSubmatch(line); m != nil {
		used, _ := strconv.Atoi(m[1])
		total, _ := strconv.Atoi(m[2])
		stats.RAMUsedMB = intPtr(used)
		stats.RAMTotalMB = intPtr(total)
		stats.RAMUsedGB = floatPtr(round2(float64(used) / 1024))
		stats.RAMTotalGB = floatPtr(round2(float64(total) / 1024))
	}

	if m := cpuRe.FindStringSubmatch(line); m != nil {
		cores := cpuCoreRe.FindAllStringSubmatch(m[1], -1)
		if len(cores) > 0 {
			total := 0
			for _, core := range cores {
				pct, _ := strconv.Atoi(core[1])
				total += pct
			}
			stats.CPUUsagePercent = floatPtr(round2(float64(total) / float64(len(cores))))
		}
	}

	if m := gpuRe.FindStringSubmatch(line); m != nil {
		pct, _ := strconv.Atoi(m[1])
		stats.GPUUsagePercent = intPtr(pct)
	}

	if m := tempRe.FindStringSubmatch(line); m != nil {
		temp, _ := strconv.ParseFloat(m[1], 64)
		stats.SOCTempC = floatPtr(temp)
	}

	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
