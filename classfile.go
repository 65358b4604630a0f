package scriptkotlin

import (
	"encoding/binary"
	"fmt"
)

// JVM class-file constant pool tags.
const (
	cpUtf8               = 1
	cpInteger            = 3
	cpFloat              = 4
	cpLong               = 5
	cpDouble             = 6
	cpClass              = 7
	cpString             = 8
	cpFieldref           = 9
	cpMethodref          = 10
	cpInterfaceMethodref = 11
	cpNameAndType        = 12
	cpMethodHandle       = 15
	cpMethodType         = 16
	cpDynamic            = 17
	cpInvokeDynamic      = 18
	cpModule             = 19
	cpPackage            = 20
)

const classMagic = 0xCAFEBABE

// parsedClass is a structural view over one class file's raw bytes: the
// constant pool strings plus the byte spans of each method_info, enough to
// introspect signatures and splice the method table without understanding
// code attributes.
type parsedClass struct {
	data        []byte
	accessFlags uint16
	className   string

	methods []parsedMethod

	// methodsCountOffset is the offset of the u2 methods_count field;
	// methodsEnd is the offset just past the last method_info.
	methodsCountOffset int
	methodsEnd         int
}

type parsedMethod struct {
	method Method
	start  int
	end    int
}

// classReader walks a class file with a sticky error, so parsing code reads
// linearly and checks failure once at the end.
type classReader struct {
	data []byte
	pos  int
	err  error
}

func (r *classReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = &MalformedClassError{Reason: fmt.Sprintf(format, args...)}
	}
}

func (r *classReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.fail("truncated at offset %d (need %d bytes)", r.pos, n)
		return false
	}
	return true
}

func (r *classReader) u1() byte {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *classReader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *classReader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *classReader) skip(n int) {
	if r.need(n) {
		r.pos += n
	}
}

func (r *classReader) utf8(n int) string {
	if !r.need(n) {
		return ""
	}
	s := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return s
}

// parseClass parses the structural skeleton of a class file. Method bodies
// and most attributes are skipped, never interpreted; no code is executed.
func parseClass(data []byte) (*parsedClass, error) {
	r := &classReader{data: data}

	if magic := r.u4(); r.err == nil && magic != classMagic {
		return nil, &MalformedClassError{Reason: fmt.Sprintf("bad magic 0x%08X", magic)}
	}
	r.skip(4) // minor, major version

	// Constant pool. Only Utf8 and Class entries are retained; everything
	// else is skipped by size. Long and Double occupy two pool slots.
	cpCount := int(r.u2())
	if r.err == nil && cpCount == 0 {
		return nil, &MalformedClassError{Reason: "empty constant pool"}
	}
	utf8s := make([]string, cpCount)
	classRefs := make([]uint16, cpCount)

	for i := 1; i < cpCount && r.err == nil; i++ {
		tag := r.u1()
		switch tag {
		case cpUtf8:
			utf8s[i] = r.utf8(int(r.u2()))
		case cpClass:
			classRefs[i] = r.u2()
		case cpString, cpMethodType, cpModule, cpPackage:
			r.skip(2)
		case cpMethodHandle:
			r.skip(3)
		case cpInteger, cpFloat, cpFieldref, cpMethodref,
			cpInterfaceMethodref, cpNameAndType, cpDynamic, cpInvokeDynamic:
			r.skip(4)
		case cpLong, cpDouble:
			r.skip(8)
			i++
		default:
			r.fail("unknown constant pool tag %d at index %d", tag, i)
		}
	}

	utf8At := func(idx uint16, what string) string {
		if int(idx) >= cpCount {
			r.fail("%s index %d out of constant pool range", what, idx)
			return ""
		}
		return utf8s[idx]
	}

	accessFlags := r.u2()
	thisClass := r.u2()
	r.skip(2) // super_class

	var className string
	if r.err == nil {
		if int(thisClass) >= cpCount {
			r.fail("this_class index %d out of constant pool range", thisClass)
		} else {
			className = utf8At(classRefs[thisClass], "this_class name")
		}
	}

	// Interfaces.
	r.skip(2 * int(r.u2()))

	skipAttributes := func() {
		count := int(r.u2())
		for i := 0; i < count && r.err == nil; i++ {
			r.skip(2) // attribute_name_index
			r.skip(int(r.u4()))
		}
	}

	// Fields.
	fieldCount := int(r.u2())
	for i := 0; i < fieldCount && r.err == nil; i++ {
		r.skip(6) // access_flags, name_index, descriptor_index
		skipAttributes()
	}

	// Methods. Each method_info's byte span is recorded so the table can be
	// spliced later without re-encoding anything else.
	methodsCountOffset := r.pos
	methodCount := int(r.u2())
	methods := make([]parsedMethod, 0, methodCount)

	for i := 0; i < methodCount && r.err == nil; i++ {
		start := r.pos
		access := r.u2()
		nameIdx := r.u2()
		descIdx := r.u2()

		var signature string
		attrCount := int(r.u2())
		for a := 0; a < attrCount && r.err == nil; a++ {
			attrName := utf8At(r.u2(), "attribute name")
			attrLen := int(r.u4())
			if attrName == "Signature" && attrLen == 2 {
				signature = utf8At(r.u2(), "method signature")
			} else {
				r.skip(attrLen)
			}
		}

		if r.err != nil {
			break
		}
		methods = append(methods, parsedMethod{
			method: Method{
				Name:        utf8At(nameIdx, "method name"),
				Descriptor:  utf8At(descIdx, "method descriptor"),
				Signature:   signature,
				AccessFlags: access,
			},
			start: start,
			end:   r.pos,
		})
	}
	methodsEnd := r.pos

	// Class attributes.
	skipAttributes()

	if r.err != nil {
		return nil, r.err
	}

	return &parsedClass{
		data:               data,
		accessFlags:        accessFlags,
		className:          className,
		methods:            methods,
		methodsCountOffset: methodsCountOffset,
		methodsEnd:         methodsEnd,
	}, nil
}

// RemoveMethods returns a copy of classBytes with every method matching pred
// excised from the method table, along with the number of methods removed.
//
// The rewrite is a structural splice: the constant pool, fields, remaining
// methods and class attributes are carried over byte-for-byte (orphaned
// constant pool entries are legal), so the output is a valid class whenever
// the input was. When nothing matches, the input bytes are returned
// unchanged.
func RemoveMethods(classBytes []byte, pred func(Method) bool) ([]byte, int, error) {
	parsed, err := parseClass(classBytes)
	if err != nil {
		return nil, 0, err
	}
	out, removed := parsed.removeMethods(pred)
	return out, removed, nil
}

func (p *parsedClass) removeMethods(pred func(Method) bool) ([]byte, int) {
	var survivors []parsedMethod
	for _, m := range p.methods {
		if !pred(m.method) {
			survivors = append(survivors, m)
		}
	}
	removed := len(p.methods) - len(survivors)
	if removed == 0 {
		return p.data, 0
	}

	out := make([]byte, 0, len(p.data))
	out = append(out, p.data[:p.methodsCountOffset]...)

	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(len(survivors)))
	out = append(out, count[:]...)

	for _, m := range survivors {
		out = append(out, p.data[m.start:m.end]...)
	}
	out = append(out, p.data[p.methodsEnd:]...)

	return out, removed
}
