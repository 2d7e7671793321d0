package verify

import (
	"fmt"
	"strings"
)

// Locators for the target page are built from config text rather than fixed
// CSS, because the page is styled with utility classes that change on every
// redesign. Text and ARIA roles are what a visitor sees and are stable.

// roleConditions maps an ARIA role to the XPath conditions matching elements
// that carry it implicitly or explicitly.
var roleConditions = map[string][]string{
	"heading": {"self::h1", "self::h2", "self::h3", "self::h4", "self::h5", "self::h6", "@role='heading'"},
	"button": {
		"self::button",
		"@role='button'",
		"(self::input and (@type='button' or @type='submit'))",
	},
	"link":   {"(self::a and @href)", "@role='link'"},
	"radio":  {"(self::input and @type='radio')", "@role='radio'"},
	"dialog": {"self::dialog", "@role='dialog'", "@role='alertdialog'"},
}

// xpathLiteral quotes s for use inside an XPath 1.0 expression
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	// Both quote kinds present: split on ' and join with concat()
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// TextXPath matches the innermost elements whose visible text contains text
func TextXPath(text string) string {
	lit := xpathLiteral(text)
	return fmt.Sprintf(
		"//body//*[contains(normalize-space(.), %s) and not(*[contains(normalize-space(.), %s)])]",
		lit, lit,
	)
}

// RoleXPath matches elements with one of roles whose text contains name.
// Unknown roles fall back to an explicit role attribute.
func RoleXPath(roles []string, name string) (string, error) {
	if len(roles) == 0 {
		return "", fmt.Errorf("no roles given")
	}

	var conds []string
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if c, ok := roleConditions[r]; ok {
			conds = append(conds, c...)
		} else {
			conds = append(conds, "@role="+xpathLiteral(r))
		}
	}
	if len(conds) == 0 {
		return "", fmt.Errorf("no usable roles in %v", roles)
	}

	expr := "//*[(" + strings.Join(conds, " or ") + ")"
	if name != "" {
		expr += " and contains(normalize-space(.), " + xpathLiteral(name) + ")"
	}
	return expr + "]", nil
}

// hiddenJS returns an expression that is true once no element matched by
// xpath is visible: either none exists or every match has no rendered box.
func hiddenJS(xpath string) string {
	return fmt.Sprintf(`(() => {
	const it = document.evaluate(%q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	for (let i = 0; i < it.snapshotLength; i++) {
		const el = it.snapshotItem(i);
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		if (style.visibility !== 'hidden' && style.display !== 'none' && rect.width > 0 && rect.height > 0) {
			return false;
		}
	}
	return true;
})()`, xpath)
}

// Page scripts
const (
	scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight)`
)
