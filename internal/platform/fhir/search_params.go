package fhir

import (
	"net/url"
	"strconv"
	"strings"
)

// SearchMode selects how a free-text patient search term is interpreted.
type SearchMode string

const (
	SearchByName SearchMode = "name"
	SearchByID   SearchMode = "id"
)

// DefaultSearchCount caps the number of results a UI search asks for.
const DefaultSearchCount = 20

// ParseSearchMode maps user input to a SearchMode, defaulting to name.
func ParseSearchMode(s string) SearchMode {
	if strings.EqualFold(strings.TrimSpace(s), string(SearchByID)) {
		return SearchByID
	}
	return SearchByName
}

// BuildSearchParams translates a search term into upstream query parameters.
// A blank term yields an empty parameter set. Results are capped and sorted by
// family name so repeated searches come back in a stable order.
func BuildSearchParams(term string, mode SearchMode) url.Values {
	params := url.Values{}
	term = strings.TrimSpace(term)
	if term == "" {
		return params
	}

	switch mode {
	case SearchByID:
		params.Set("_id", term)
	default:
		params.Set("name", term)
	}

	params.Set("_count", strconv.Itoa(DefaultSearchCount))
	params.Set("_sort", "family")
	params.Set("_format", "json")
	return params
}

// BuildListParams builds a sorted, paged listing query. page is 1-based.
func BuildListParams(page, limit int) url.Values {
	if limit <= 0 {
		limit = DefaultSearchCount
	}
	params := url.Values{}
	params.Set("_count", strconv.Itoa(limit))
	params.Set("_sort", "family")
	params.Set("_format", "json")
	if page > 1 {
		params.Set("_getpagesoffset", strconv.Itoa((page-1)*limit))
	}
	return params
}

// BuildPatientScopedParams builds a query for a patient's resources of one
// category/status, asking the server to include the Patient for display names.
// Empty category or status are left out.
func BuildPatientScopedParams(resourceType, patientID, category, status string) url.Values {
	params := url.Values{}
	params.Set("patient", patientID)
	if category != "" {
		params.Set("category", category)
	}
	if status != "" {
		params.Set("status", status)
	}
	params.Set("_include", resourceType+":patient")
	params.Set("_format", "json")
	return params
}

// BuildDateRangeParams builds an inclusive date-range query. Either bound may be empty.
func BuildDateRangeParams(start, end string) url.Values {
	params := url.Values{}
	if start != "" {
		params.Add("date", "ge"+start)
	}
	if end != "" {
		params.Add("date", "le"+end)
	}
	params.Set("_format", "json")
	return params
}

// blockedParam reports whether a query key is a browser or tooling artefact
// that FHIR servers reject.
func blockedParam(key string) bool {
	return strings.HasPrefix(key, "vscodeBrowserReqId") ||
		strings.HasPrefix(key, "webview") ||
		strings.Contains(key, "Browser") ||
		strings.Contains(key, "chrome") ||
		strings.Contains(key, "safari") ||
		strings.Contains(key, "firefox")
}

// CleanParams returns a copy of params without blocked keys.
func CleanParams(params url.Values) url.Values {
	out := url.Values{}
	for k, v := range params {
		if blockedParam(k) {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}
