package plugin

import (
	"strings"

	"golang.org/x/mod/semver"
)

// constraintOps lists the supported operators, longest first so that ">="
// is not parsed as ">".
var constraintOps = []string{">=", "<=", ">", "<", "^", "~", "="}

// normalizeVersion ensures a "v" prefix for semver comparison.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

func isValidVersion(v string) bool {
	return semver.IsValid(normalizeVersion(v))
}

// splitConstraint returns the operator and the normalized version of a
// constraint. A bare version means "=".
func splitConstraint(constraint string) (op, version string) {
	constraint = strings.TrimSpace(constraint)
	op = "="
	for _, candidate := range constraintOps {
		if strings.HasPrefix(constraint, candidate) {
			op = candidate
			constraint = strings.TrimPrefix(constraint, candidate)
			break
		}
	}
	return op, normalizeVersion(constraint)
}

func isValidConstraint(constraint string) bool {
	_, cv := splitConstraint(constraint)
	return semver.IsValid(cv)
}

// satisfiesVersionConstraint checks if a version satisfies a constraint.
// Supports: =, >=, <=, >, <, ^, ~ prefixes. An empty constraint or an
// unversioned plugin always satisfies.
func satisfiesVersionConstraint(version, constraint string) bool {
	if constraint == "" || version == "" {
		return true
	}

	v := normalizeVersion(version)
	op, cv := splitConstraint(constraint)
	if !semver.IsValid(v) || !semver.IsValid(cv) {
		return false
	}

	cmp := semver.Compare(v, cv)

	switch op {
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case "^":
		return cmp >= 0 && semver.Major(v) == semver.Major(cv)
	case "~":
		return cmp >= 0 && semver.MajorMinor(v) == semver.MajorMinor(cv)
	default:
		return cmp == 0
	}
}
