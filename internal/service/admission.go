package service

import "strings"

// DomainAllowList decides email-domain auto-admission.
//
// Entries are matched case-insensitively. "uw.edu" admits uw.edu and any
// subdomain of it (cs.uw.edu) but not eviluw.edu. An entry with a leading dot
// (".edu") is a plain suffix and admits every domain ending in it.
type DomainAllowList struct {
	exact    []string
	suffixes []string
}

func NewDomainAllowList(entries []string) *DomainAllowList {
	l := &DomainAllowList{}
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		e = strings.TrimPrefix(e, "@")
		switch {
		case e == "" || e == ".":
		case strings.HasPrefix(e, "."):
			l.suffixes = append(l.suffixes, e)
		default:
			l.exact = append(l.exact, e)
		}
	}
	return l
}

func (l *DomainAllowList) Empty() bool {
	return l == nil || len(l.exact)+len(l.suffixes) == 0
}

// Allows reports whether the email's domain is on the list.
func (l *DomainAllowList) Allows(email string) bool {
	if l.Empty() {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))

	for _, d := range l.exact {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	for _, s := range l.suffixes {
		if strings.HasSuffix(domain, s) {
			return true
		}
	}
	return false
}
