package locator

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/quantmind-br/spclone-go/internal/domain"
)

var (
	identRegex    = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	shortRefRegex = regexp.MustCompile(`^([A-Za-z0-9._-]+)/([A-Za-z0-9._-]+?)(?:\.git)?(?:@(.+))?$`)
	treeRegex     = regexp.MustCompile(`^/([^/]+)/([^/]+?)(?:\.git)?(?:/(?:tree|blob)/([^/]+)(?:/(.+))?)?/?$`)
)

// Parser turns user-supplied repository references into domain.Reference
// values. Accepted forms:
//
//	owner/name
//	owner/name@ref
//	owner/name.git
//	github.com/owner/name
//	https://github.com/owner/name[.git]
//	https://github.com/owner/name/tree/<ref>[/<subpath>]
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse decomposes input into a Reference. It performs no network I/O.
func (p *Parser) Parse(input string) (domain.Reference, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return domain.Reference{}, fmt.Errorf("%w: empty input", domain.ErrInvalidReference)
	}

	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return p.parseURL(input)
	}
	if strings.HasPrefix(input, "github.com/") {
		return p.parseURL("https://" + input)
	}

	matches := shortRefRegex.FindStringSubmatch(input)
	if matches == nil {
		return domain.Reference{}, fmt.Errorf("%w: expected owner/name[@ref], got %q", domain.ErrInvalidReference, input)
	}

	ref := domain.Reference{
		Owner: matches[1],
		Name:  matches[2],
		Ref:   matches[3],
	}
	return validate(ref, input)
}

func (p *Parser) parseURL(rawURL string) (domain.Reference, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.Reference{}, fmt.Errorf("%w: %v", domain.ErrInvalidReference, err)
	}

	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return domain.Reference{}, fmt.Errorf("%w: only github.com URLs are supported, got %q", domain.ErrInvalidReference, u.Hostname())
	}

	matches := treeRegex.FindStringSubmatch(u.Path)
	if matches == nil {
		return domain.Reference{}, fmt.Errorf("%w: expected /owner/name in URL path, got %q", domain.ErrInvalidReference, u.Path)
	}

	ref := domain.Reference{
		Owner:   matches[1],
		Name:    strings.TrimSuffix(matches[2], ".git"),
		Ref:     matches[3],
		SubPath: normalizeSubPath(matches[4]),
	}
	return validate(ref, rawURL)
}

func validate(ref domain.Reference, input string) (domain.Reference, error) {
	if !identRegex.MatchString(ref.Owner) || !identRegex.MatchString(ref.Name) {
		return domain.Reference{}, fmt.Errorf("%w: owner and name must be valid identifiers: %q", domain.ErrInvalidReference, input)
	}
	if ref.Owner == "." || ref.Owner == ".." || ref.Name == "." || ref.Name == ".." {
		return domain.Reference{}, fmt.Errorf("%w: %q", domain.ErrInvalidReference, input)
	}
	return ref, nil
}

func normalizeSubPath(p string) string {
	if p == "" {
		return ""
	}

	decoded, err := url.PathUnescape(p)
	if err == nil {
		p = decoded
	}

	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.Trim(p, "/")
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}
