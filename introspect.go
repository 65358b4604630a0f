package scriptkotlin

import (
	"io"
	"path"
	"strings"
)

// JVM access flags relevant to introspection.
const (
	accPublic    = 0x0001
	accStatic    = 0x0008
	accSynthetic = 0x1000
)

// Method is the structural view of one method signature: name, type
// descriptor, optional generic signature attribute, and access flags.
type Method struct {
	// Name is the method name as declared, e.g. "apply" or "<init>".
	Name string

	// Descriptor is the erased JVM type descriptor,
	// e.g. "(Lorg/gradle/api/Action;)V".
	Descriptor string

	// Signature is the generic signature attribute when present,
	// e.g. "(Lorg/gradle/api/Action<Lorg/gradle/api/Task;>;)V".
	Signature string

	// AccessFlags holds the raw JVM access flags.
	AccessFlags uint16
}

// IsPublic reports whether the method is public.
func (m Method) IsPublic() bool { return m.AccessFlags&accPublic != 0 }

// IsStatic reports whether the method is static.
func (m Method) IsStatic() bool { return m.AccessFlags&accStatic != 0 }

// IsSynthetic reports whether the method is compiler-synthesized.
func (m Method) IsSynthetic() bool { return m.AccessFlags&accSynthetic != 0 }

// ClassNode is the in-memory structural view of one class: its name, access
// flags and method signatures. Nodes are ephemeral, produced by ClassNodeFor
// and consumed immediately by the extension generator; they are never
// persisted.
type ClassNode struct {
	// Name is the internal JVM class name, e.g. "org/gradle/api/Task".
	Name string

	// AccessFlags holds the raw JVM class access flags.
	AccessFlags uint16

	// Methods lists the declared methods in class-file order.
	Methods []Method
}

// IsPublic reports whether the class is public.
func (n *ClassNode) IsPublic() bool { return n.AccessFlags&accPublic != 0 }

// DottedName returns the source-form class name, e.g. "org.gradle.api.Task".
func (n *ClassNode) DottedName() string {
	return strings.ReplaceAll(n.Name, "/", ".")
}

// ClassNodeFor parses one class file's bytecode into a structural node.
//
// Parsing is purely structural: no code in the class is loaded or executed.
// Corrupt input yields a *MalformedClassError.
func ClassNodeFor(r io.Reader) (*ClassNode, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	parsed, err := parseClass(data)
	if err != nil {
		return nil, err
	}

	methods := make([]Method, len(parsed.methods))
	for i, m := range parsed.methods {
		methods[i] = m.method
	}

	return &ClassNode{
		Name:        parsed.className,
		AccessFlags: parsed.accessFlags,
		Methods:     methods,
	}, nil
}

// IsAPIClassEntry reports whether a jar entry denotes a top-level class
// under pkgPrefix (internal form with trailing slash, e.g. "org/gradle/").
//
// Inner and synthetic classes carry '$' in their base name and are excluded,
// as are package-info and module-info pseudo-classes. Public-ness is a
// property of the parsed node, checked separately via ClassNode.IsPublic.
func IsAPIClassEntry(entryName, pkgPrefix string) bool {
	if !strings.HasSuffix(entryName, ".class") {
		return false
	}
	if !strings.HasPrefix(entryName, pkgPrefix) {
		return false
	}

	base := strings.TrimSuffix(path.Base(entryName), ".class")
	if strings.Contains(base, "$") {
		return false
	}
	if base == "package-info" || base == "module-info" {
		return false
	}
	return true
}
