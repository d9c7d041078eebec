package document

import (
	"strconv"
	"strings"
)

// Path addresses a node from the document root. Array positions are decimal
// strings so that a path can be built without knowing the node kinds.
type Path []string

// Child returns a copy of p extended with key.
func (p Path) Child(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// Index returns a copy of p extended with an array position.
func (p Path) Index(i int) Path {
	return p.Child(strconv.Itoa(i))
}

// Parent returns p without its last element.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[: len(p)-1 : len(p)-1]
}

// Last returns the final element of p.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// HasPrefix reports whether prefix addresses p or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both paths address the same node.
func (p Path) Equal(o Path) bool {
	return len(p) == len(o) && p.HasPrefix(o)
}

// Clone copies p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// String renders p as an RFC 6901 JSON pointer.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, seg := range p {
		sb.WriteByte('/')
		sb.WriteString(pointerEscaper.Replace(seg))
	}
	return sb.String()
}

var (
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// ParsePointer converts an RFC 6901 JSON pointer into a Path.
func ParsePointer(ptr string) (Path, error) {
	if ptr == "" {
		return Path{}, nil
	}
	if ptr[0] != '/' {
		return nil, ErrInvalidPointer
	}
	segs := strings.Split(ptr[1:], "/")
	out := make(Path, len(segs))
	for i, seg := range segs {
		out[i] = pointerUnescaper.Replace(seg)
	}
	return out, nil
}

func parseIndex(seg string, length int, allowEnd bool) (int, error) {
	if seg == "-" && allowEnd {
		return length, nil
	}
	if seg == "" || (len(seg) > 1 && seg[0] == '0') {
		return 0, ErrInvalidIndex
	}
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 {
		return 0, ErrInvalidIndex
	}
	limit := length - 1
	if allowEnd {
		limit = length
	}
	if i > limit {
		return 0, ErrIndexOutOfRange
	}
	return i, nil
}
