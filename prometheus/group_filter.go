package prometheus

import (
	"fmt"
	"regexp"
	"strings"
)

type groupFilter struct {
	allowed []*regexp.Regexp
	ignored []*regexp.Regexp
}

func newGroupFilter(cfg ConsumerGroupConfig) (*groupFilter, error) {
	allowed, err := compileRegexes(cfg.AllowedGroupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to compile allowed group ids: %w", err)
	}
	ignored, err := compileRegexes(cfg.IgnoredGroupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to compile ignored group ids: %w", err)
	}

	return &groupFilter{allowed: allowed, ignored: ignored}, nil
}

// IsAllowed reports whether a group matches any allowed and no ignored expression.
func (f *groupFilter) IsAllowed(groupID string) bool {
	isAllowed := false
	for _, regex := range f.allowed {
		if regex.MatchString(groupID) {
			isAllowed = true
			break
		}
	}

	for _, regex := range f.ignored {
		if regex.MatchString(groupID) {
			isAllowed = false
			break
		}
	}
	return isAllowed
}

func compileRegex(expr string) (*regexp.Regexp, error) {
	if len(expr) > 1 && strings.HasPrefix(expr, "/") && strings.HasSuffix(expr, "/") {
		substr := expr[1 : len(expr)-1]
		regex, err := regexp.Compile(substr)
		if err != nil {
			return nil, err
		}

		return regex, nil
	}

	// Inputs without surrounding slashes are matched literally
	return regexp.Compile("^" + regexp.QuoteMeta(expr) + "$")
}

func compileRegexes(expr []string) ([]*regexp.Regexp, error) {
	compiledExpressions := make([]*regexp.Regexp, len(expr))
	for i, exprStr := range expr {
		expr, err := compileRegex(exprStr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression string '%v': %w", exprStr, err)
		}
		compiledExpressions[i] = expr
	}

	return compiledExpressions, nil
}
