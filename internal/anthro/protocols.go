// Package anthro estimates body composition from skinfold measurements using
// the Jackson & Pollock and Durnin & Womersley protocols.
package anthro

import (
	"math"
	"sort"
)

// Skinfold sites, in millimetres.
const (
	SiteTriceps     = "triceps"
	SiteChest       = "chest"
	SiteSubscapular = "subscapular"
	SiteSuprailiac  = "suprailiac"
	SiteMidaxillary = "midaxillary"
	SiteAbdominal   = "abdominal"
	SiteThigh       = "thigh"
	SiteBiceps      = "biceps"
)

// DefaultAge is used by the age-adjusted equations when the subject's age is unknown.
const DefaultAge = 40

// DefaultHeightM is assumed when the request carries no height.
const DefaultHeightM = 1.75

// Protocol is one skinfold body-density equation.
type Protocol struct {
	Code       string
	Name       string
	VersionTag string
	Sites      []string
	density    func(sum, age float64) float64
}

// jacksonPollock returns the quadratic Jackson & Pollock density equation.
func jacksonPollock(c0, c1, c2, cAge float64) func(sum, age float64) float64 {
	return func(sum, age float64) float64 {
		return c0 - c1*sum + c2*sum*sum - cAge*age
	}
}

// durninWomersley returns the logarithmic Durnin & Womersley density equation.
func durninWomersley(c, m float64) func(sum, age float64) float64 {
	return func(sum, _ float64) float64 {
		return c - m*math.Log10(sum)
	}
}

var (
	sevenSites  = []string{SiteTriceps, SiteChest, SiteSubscapular, SiteSuprailiac, SiteMidaxillary, SiteAbdominal, SiteThigh}
	threeSites  = []string{SiteChest, SiteAbdominal, SiteThigh}
	fourSites   = []string{SiteChest, SiteAbdominal, SiteThigh, SiteTriceps}
	durninSites = []string{SiteTriceps, SiteBiceps, SiteSubscapular, SiteSuprailiac}
)

var protocols = map[string]Protocol{
	"JP7_H_M": {
		Code: "JP7_H_M", Name: "Jackson & Pollock 7 skinfolds, male", VersionTag: "JP7_2025_09", Sites: sevenSites,
		density: jacksonPollock(1.112, 0.00043499, 0.00000055, 0.00028826),
	},
	"JP7_M_F": {
		Code: "JP7_M_F", Name: "Jackson & Pollock 7 skinfolds, female", VersionTag: "JP7_2025_09", Sites: sevenSites,
		density: jacksonPollock(1.097, 0.00046971, 0.00000056, 0.00012828),
	},
	"JP3_H_M": {
		Code: "JP3_H_M", Name: "Jackson & Pollock 3 skinfolds, male", VersionTag: "JP3_2025_09", Sites: threeSites,
		density: jacksonPollock(1.10938, 0.0008267, 0.0000016, 0.0002574),
	},
	"JP3_M_F": {
		Code: "JP3_M_F", Name: "Jackson & Pollock 3 skinfolds, female", VersionTag: "JP3_2025_09", Sites: threeSites,
		density: jacksonPollock(1.0994921, 0.0009929, 0.0000023, 0.0001392),
	},
	"JP4_H_M": {
		Code: "JP4_H_M", Name: "Jackson & Pollock 4 skinfolds, male", VersionTag: "JP4_2025_09", Sites: fourSites,
		density: jacksonPollock(1.10938, 0.0008267, 0.0000016, 0.0002574),
	},
	"JP4_M_F": {
		Code: "JP4_M_F", Name: "Jackson & Pollock 4 skinfolds, female", VersionTag: "JP4_2025_09", Sites: fourSites,
		density: jacksonPollock(1.0994921, 0.0009929, 0.0000023, 0.0001392),
	},
	"DURNI_H_M": {
		Code: "DURNI_H_M", Name: "Durnin & Womersley, male", VersionTag: "DURNI_2025_09", Sites: durninSites,
		density: durninWomersley(1.1610, 0.0632),
	},
	"DURNI_M_F": {
		Code: "DURNI_M_F", Name: "Durnin & Womersley, female", VersionTag: "DURNI_2025_09", Sites: durninSites,
		density: durninWomersley(1.1599, 0.0717),
	},
}

// Lookup returns the protocol registered under code.
func Lookup(code string) (Protocol, bool) {
	p, ok := protocols[code]
	return p, ok
}

// Codes lists the supported protocol codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(protocols))
	for code := range protocols {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// siri converts body density to body-fat percentage.
func siri(density float64) float64 {
	return (4.95/density - 4.50) * 100
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
