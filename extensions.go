package scriptkotlin

import (
	"fmt"
	"io"
	"strings"
)

// The callback type the DSL rewrites into Kotlin lambdas. Fixed: the
// extension grammar targets the build tool's Action interface.
const (
	actionInternalName = "org/gradle/api/Action"
	actionDescriptor   = "L" + actionInternalName + ";"
)

// DefaultExtensionsPackage is the package the generated extension functions
// are declared in.
const DefaultExtensionsPackage = "org.gradle.script.lang.kotlin"

// eligibleForExtension is the single signature classifier shared by the
// generator and the conflict predicate. Keeping one function keeps the two
// sides symmetric: an extension is generated for a method exactly when the
// method conflicts with that extension.
//
// A method is eligible when it is a public, non-static, non-synthetic
// instance method (not a constructor or static initializer) whose final
// parameter's erased type is the Action callback.
func eligibleForExtension(m Method) bool {
	if !m.IsPublic() || m.IsStatic() || m.IsSynthetic() {
		return false
	}
	if strings.HasPrefix(m.Name, "<") {
		return false
	}

	params, _, err := parseMethodDescriptor(m.Descriptor)
	if err != nil {
		return false
	}
	return len(params) > 0 && params[len(params)-1] == actionDescriptor
}

// ConflictsWithExtension reports whether a generated extension function
// would collide with this original method. It is the exact inverse-correlate
// of the generation rule: true iff WriteExtensionsFor emits an extension for
// the method.
func ConflictsWithExtension(m Method) bool {
	return eligibleForExtension(m)
}

// ExtensionWriter emits Kotlin extension-function declarations to a text
// sink. It owns no state beyond the writer and the target package name.
type ExtensionWriter struct {
	w             io.Writer
	pkg           string
	headerWritten bool
}

// NewExtensionWriter creates a writer targeting pkg; an empty pkg selects
// DefaultExtensionsPackage.
func NewExtensionWriter(w io.Writer, pkg string) *ExtensionWriter {
	if pkg == "" {
		pkg = DefaultExtensionsPackage
	}
	return &ExtensionWriter{w: w, pkg: pkg}
}

func (x *ExtensionWriter) ensureHeader() error {
	if x.headerWritten {
		return nil
	}
	x.headerWritten = true
	_, err := fmt.Fprintf(x.w, "package %s\n\nimport org.gradle.api.Action\n\n", x.pkg)
	return err
}

// Finish makes sure the output is a valid Kotlin source file even when no
// extension was generated, by writing the package header if nothing else
// did.
func (x *ExtensionWriter) Finish() error {
	return x.ensureHeader()
}

// WriteExtensionsFor appends extension-function declarations for every
// eligible method of the given class and returns how many were written.
//
// Non-public classes yield nothing. For an eligible method
//
//	Task task(String name, Action<Task> configure)
//
// the emitted declaration is
//
//	fun org.gradle.api.Project.task(p0: String, f: (org.gradle.api.Task) -> Unit): org.gradle.api.Task = task(p0, Action { f(it) })
//
// which compiles standalone against the original API jar.
func (x *ExtensionWriter) WriteExtensionsFor(node *ClassNode) (int, error) {
	if node == nil || !node.IsPublic() {
		return 0, nil
	}

	written := 0
	receiver := node.DottedName()

	for _, m := range node.Methods {
		if !eligibleForExtension(m) {
			continue
		}

		params, ret, err := parseMethodDescriptor(m.Descriptor)
		if err != nil {
			continue
		}

		if err := x.ensureHeader(); err != nil {
			return written, err
		}

		var decl strings.Builder
		fmt.Fprintf(&decl, "fun %s.%s(", receiver, m.Name)

		var args []string
		for i, p := range params[:len(params)-1] {
			fmt.Fprintf(&decl, "p%d: %s, ", i, kotlinTypeOf(p))
			args = append(args, fmt.Sprintf("p%d", i))
		}
		fmt.Fprintf(&decl, "f: (%s) -> Unit)", callbackArgumentOf(m.Signature))

		if ret != "V" {
			fmt.Fprintf(&decl, ": %s", kotlinTypeOf(ret))
		}

		args = append(args, "Action { f(it) }")
		fmt.Fprintf(&decl, " = %s(%s)\n", m.Name, strings.Join(args, ", "))

		if _, err := io.WriteString(x.w, decl.String()); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}

// parseMethodDescriptor splits an erased JVM method descriptor into its
// parameter type descriptors and return type descriptor.
func parseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, "", fmt.Errorf("invalid method descriptor %q", desc)
	}

	i := 1
	for i < len(desc) && desc[i] != ')' {
		t, n, terr := parseTypeDescriptor(desc[i:])
		if terr != nil {
			return nil, "", fmt.Errorf("invalid method descriptor %q: %w", desc, terr)
		}
		params = append(params, t)
		i += n
	}
	if i >= len(desc) || desc[i] != ')' || i+1 >= len(desc) {
		return nil, "", fmt.Errorf("invalid method descriptor %q", desc)
	}

	ret, n, terr := parseTypeDescriptor(desc[i+1:])
	if terr != nil || i+1+n != len(desc) {
		return nil, "", fmt.Errorf("invalid method descriptor %q", desc)
	}
	return params, ret, nil
}

// parseTypeDescriptor reads one field type descriptor from the front of s,
// returning the descriptor and its length in bytes.
func parseTypeDescriptor(s string) (string, int, error) {
	if len(s) == 0 {
		return "", 0, fmt.Errorf("empty type descriptor")
	}

	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return s[:1], 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated object type in %q", s)
		}
		return s[:end+1], end + 1, nil
	case '[':
		elem, n, err := parseTypeDescriptor(s[1:])
		if err != nil {
			return "", 0, err
		}
		return "[" + elem, n + 1, nil
	default:
		return "", 0, fmt.Errorf("unknown type descriptor %q", s)
	}
}

var primitiveKotlinTypes = map[byte]string{
	'B': "Byte", 'C': "Char", 'D': "Double", 'F': "Float",
	'I': "Int", 'J': "Long", 'S': "Short", 'Z': "Boolean", 'V': "Unit",
}

var primitiveArrayKotlinTypes = map[byte]string{
	'B': "ByteArray", 'C': "CharArray", 'D': "DoubleArray", 'F': "FloatArray",
	'I': "IntArray", 'J': "LongArray", 'S': "ShortArray", 'Z': "BooleanArray",
}

// kotlinTypeOf maps an erased JVM type descriptor to Kotlin source syntax.
func kotlinTypeOf(desc string) string {
	if desc == "" {
		return "Any"
	}

	if t, ok := primitiveKotlinTypes[desc[0]]; ok && len(desc) == 1 {
		return t
	}

	switch desc[0] {
	case 'L':
		return kotlinClassName(desc[1 : len(desc)-1])
	case '[':
		if len(desc) == 2 {
			if t, ok := primitiveArrayKotlinTypes[desc[1]]; ok {
				return t
			}
		}
		return "Array<" + kotlinTypeOf(desc[1:]) + ">"
	}
	return "Any"
}

// kotlinClassName converts an internal class name to Kotlin source form,
// substituting the Kotlin aliases for the ubiquitous java.lang types.
func kotlinClassName(internal string) string {
	switch internal {
	case "java/lang/String":
		return "String"
	case "java/lang/Object":
		return "Any"
	case "java/lang/CharSequence":
		return "CharSequence"
	}
	return strings.ReplaceAll(internal, "/", ".")
}

// callbackArgumentOf recovers the Action type argument from a generic
// method signature attribute, e.g. "Lorg/gradle/api/Task;" out of
// "(Lorg/gradle/api/Action<Lorg/gradle/api/Task;>;)V". Wildcards, type
// variables and a missing signature all degrade to Any, which is always a
// valid lambda parameter type for the generated call.
func callbackArgumentOf(signature string) string {
	// Only the parameter segment matters; the return type may be a generic
	// Action too and must not win over the final parameter.
	if end := strings.IndexByte(signature, ')'); end >= 0 {
		signature = signature[:end]
	}

	marker := "L" + actionInternalName + "<"
	i := strings.LastIndex(signature, marker)
	if i < 0 {
		return "Any"
	}

	arg := signature[i+len(marker):]
	if arg == "" {
		return "Any"
	}

	switch arg[0] {
	case '*':
		return "Any"
	case '+', '-':
		arg = arg[1:]
	}
	if arg == "" || arg[0] != 'L' {
		return "Any" // type variable or malformed
	}

	end := strings.IndexAny(arg, "<;")
	if end < 0 {
		return "Any"
	}
	return kotlinClassName(arg[1:end])
}
