package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"dextools-monitor-bot/internal/types"
)

// UnknownName is reported when no name strategy matches.
const UnknownName = "Unknown"

// strategy pulls one field out of a page. The bool is false when the
// pattern did not match or the capture did not convert.
type strategy[T any] func(content string) (T, bool)

// Strategies are listed in priority order: the embedded JSON state first,
// the rendered markup second.
var (
	nameStrategies = []strategy[string]{
		regexString(regexp.MustCompile(`"symbol":"([^"]+)"`)),
		regexString(regexp.MustCompile(`<title>([A-Z0-9]{2,15})[^<]*</title>`)),
	}
	priceStrategies = []strategy[float64]{
		regexFloat(regexp.MustCompile(`"price":"([0-9.e-]+)"`)),
		regexFloat(regexp.MustCompile(`price[^>]*>\$?([0-9.e-]+)<`)),
	}
	changeStrategies = []strategy[float64]{
		regexFloat(regexp.MustCompile(`"price24h":[^}]*"percent":([^,}]+)`)),
		regexFloat(regexp.MustCompile(`24h[^>]*>([+-]?[0-9.]+)%`)),
	}
)

func regexString(re *regexp.Regexp) strategy[string] {
	return func(content string) (string, bool) {
		m := re.FindStringSubmatch(content)
		if len(m) < 2 || m[1] == "" {
			return "", false
		}
		return m[1], true
	}
}

func regexFloat(re *regexp.Regexp) strategy[float64] {
	return func(content string) (float64, bool) {
		m := re.FindStringSubmatch(content)
		if len(m) < 2 {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
}

func firstOf[T any](content string, strategies []strategy[T]) (T, bool) {
	for _, s := range strategies {
		if v, ok := s(content); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Extract reads name, price and 24h change from a fetched pair page.
// Fields that no strategy recognises keep their defaults ("Unknown", 0, 0);
// the result is still OK because the page itself was fetched.
func Extract(content string) types.Metric {
	m := types.Metric{Name: UnknownName, OK: true}

	if name, ok := firstOf(content, nameStrategies); ok {
		m.Name, m.NameParsed = name, true
	}
	if price, ok := firstOf(content, priceStrategies); ok {
		m.Price, m.PriceParsed = price, true
	}
	if change, ok := firstOf(content, changeStrategies); ok {
		m.Change24h, m.ChangeParsed = change, true
	}
	return m
}
