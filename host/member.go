package host

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/luthersystems/eclj/lang"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Method is a constructor, static method or instance method of a class.  An
// instance method receives its target as the first argument of Call but the
// target is not listed in Params.
type Method struct {
	Class    *Class
	Name     string
	Params   []*Class
	Ret      *Class
	Static   bool
	HasError bool

	fn     reflect.Value
	direct func(args []any) (any, error)
}

func newMethod(c *Class, name string, fn any, static bool) *Method {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func || t.IsVariadic() {
		panic(fmt.Sprintf("host: %s/%s is not a fixed arity function: %T", c.Name, name, fn))
	}
	m := &Method{
		Class:  c,
		Name:   name,
		Static: static,
		fn:     v,
	}
	start := 0
	if !static {
		start = 1
	}
	for i := start; i < t.NumIn(); i++ {
		m.Params = append(m.Params, ClassOf(t.In(i)))
	}
	switch t.NumOut() {
	case 0:
		m.Ret = Void
	case 1:
		if t.Out(0) == errorType {
			m.Ret = Void
			m.HasError = true
		} else {
			m.Ret = ClassOf(t.Out(0))
		}
	case 2:
		if t.Out(1) != errorType {
			panic(fmt.Sprintf("host: second result of %s/%s is not an error", c.Name, name))
		}
		m.Ret = ClassOf(t.Out(0))
		m.HasError = true
	default:
		panic(fmt.Sprintf("host: %s/%s returns too many values", c.Name, name))
	}
	m.direct = directCall(fn)
	return m
}

// Signature returns name(param,...) using the names of parameter classes.
func (m *Method) Signature() string {
	names := make([]string, len(m.Params))
	for i, p := range m.Params {
		names[i] = p.Name
	}
	return m.Name + "(" + strings.Join(names, ",") + ")"
}

func (m *Method) String() string {
	return m.Class.Name + "/" + m.Signature()
}

// Arity returns the number of parameters, excluding an instance target.
func (m *Method) Arity() int {
	return len(m.Params)
}

// Call invokes m.  Instance methods take their target as args[0].  Integral
// results are normalized to int64 unless the method returns int32.
func (m *Method) Call(args []any) (any, error) {
	if m.direct != nil {
		return m.direct(args)
	}
	return m.call(args)
}

func (m *Method) call(args []any) (any, error) {
	t := m.fn.Type()
	if len(args) != t.NumIn() {
		return nil, &lang.WrongArityError{Name: m.Class.Name + "/" + m.Name, Count: len(args)}
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v, err := Coerce(a, t.In(i))
		if err != nil {
			return nil, err
		}
		in[i] = v
	}
	out := m.fn.Call(in)
	if m.HasError {
		last := out[len(out)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return Normalize(out[0]), nil
}

// directCall avoids reflection for the function shapes used by the numeric
// library.  Argument type mismatches fall back to nil so the reflective path
// is used.
func directCall(fn any) func(args []any) (any, error) {
	switch f := fn.(type) {
	case func(any) (any, error):
		return func(args []any) (any, error) {
			if len(args) != 1 {
				return nil, &lang.WrongArityError{Count: len(args)}
			}
			return f(args[0])
		}
	case func(any, any) (any, error):
		return func(args []any) (any, error) {
			if len(args) != 2 {
				return nil, &lang.WrongArityError{Count: len(args)}
			}
			return f(args[0], args[1])
		}
	case func(any, any) (bool, error):
		return func(args []any) (any, error) {
			if len(args) != 2 {
				return nil, &lang.WrongArityError{Count: len(args)}
			}
			return f(args[0], args[1])
		}
	case func(any) (bool, error):
		return func(args []any) (any, error) {
			if len(args) != 1 {
				return nil, &lang.WrongArityError{Count: len(args)}
			}
			return f(args[0])
		}
	}
	return nil
}

// Normalize converts a reflected result into the boxed representation used
// by the runtime.
func Normalize(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(v.Uint())
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
	}
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// Coerce converts a boxed runtime value to a value of Go type t for a
// reflective call.
func Coerce(x any, t reflect.Type) (reflect.Value, error) {
	if x == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, &lang.ClassCastError{From: "nil", To: t.String()}
	}
	v := reflect.ValueOf(x)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if _, ok := x.(lang.Char); !ok && isIntKind(v.Kind()) {
		if isIntKind(t.Kind()) {
			n := v.Int()
			if reflect.Zero(t).OverflowInt(n) {
				return reflect.Value{}, &lang.IllegalArgumentError{Msg: fmt.Sprintf("Value out of range for %s: %d", t, n)}
			}
			return v.Convert(t), nil
		}
		if isFloatKind(t.Kind()) {
			return v.Convert(t), nil
		}
	}
	if isFloatKind(v.Kind()) && isFloatKind(t.Kind()) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, &lang.ClassCastError{From: lang.TypeName(x), To: ClassOf(t).Boxed().Name}
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// Field is a static or instance field of a class.
type Field struct {
	Class  *Class
	Name   string
	Type   *Class
	Static bool

	value any
	get   func(x any) (any, error)
	set   func(x, v any) error
}

// Get returns the value of the field of x, or of a static field.
func (f *Field) Get(x any) (any, error) {
	if f.Static {
		return f.value, nil
	}
	return f.get(x)
}

// Set assigns the field of x.
func (f *Field) Set(x, v any) error {
	if f.set == nil {
		return &lang.IllegalArgumentError{Msg: fmt.Sprintf("Cannot assign to non-mutable: %s", f.Name)}
	}
	return f.set(x, v)
}

// Settable reports whether Set can succeed.
func (f *Field) Settable() bool {
	return f.set != nil
}

func (f *Field) String() string {
	return f.Class.Name + "/" + f.Name
}

// AddStatic defines a static method implemented by fn.
func (c *Class) AddStatic(name string, fn any) *Class {
	m := newMethod(c, name, fn, true)
	c.mu.Lock()
	c.statics[name] = append(c.statics[name], m)
	c.mu.Unlock()
	return c
}

// AddMethod defines an instance method implemented by fn, whose first
// parameter receives the target.
func (c *Class) AddMethod(name string, fn any) *Class {
	m := newMethod(c, name, fn, false)
	c.mu.Lock()
	c.methods[name] = append(c.methods[name], m)
	c.mu.Unlock()
	return c
}

// AddCtor defines a constructor implemented by fn.
func (c *Class) AddCtor(fn any) *Class {
	m := newMethod(c, "new", fn, true)
	c.mu.Lock()
	c.ctors = append(c.ctors, m)
	c.mu.Unlock()
	return c
}

// AddStaticField defines a constant.
func (c *Class) AddStaticField(name string, value any) *Class {
	f := &Field{
		Class:  c,
		Name:   name,
		Type:   ClassOf(reflect.TypeOf(value)),
		Static: true,
		value:  value,
	}
	c.mu.Lock()
	c.sfields[name] = f
	c.mu.Unlock()
	return c
}

// AddField defines a read-only instance field whose value is computed by
// get, a function of one argument.
func (c *Class) AddField(name string, get any) *Class {
	m := newMethod(c, name, get, false)
	f := &Field{
		Class: c,
		Name:  name,
		Type:  m.Ret,
		get: func(x any) (any, error) {
			return m.Call([]any{x})
		},
	}
	c.mu.Lock()
	c.fields[name] = f
	c.mu.Unlock()
	return c
}

// StaticMethods returns the static methods named name taking arity
// arguments.
func (c *Class) StaticMethods(name string, arity int) []*Method {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return withArity(c.statics[name], arity)
}

// HasStatic reports whether c has a static method named name of any arity.
func (c *Class) HasStatic(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.statics[name]) > 0
}

// Methods returns the instance methods named name taking arity arguments
// besides the target.
func (c *Class) Methods(name string, arity int) []*Method {
	c.mu.RLock()
	ms := withArity(c.methods[name], arity)
	c.mu.RUnlock()
	if len(ms) > 0 || c.Def != nil || c.Type == nil {
		return ms
	}
	if m := c.goMethod(name); m != nil && m.Arity() == arity {
		return []*Method{m}
	}
	return nil
}

// HasMethod reports whether c has an instance method named name.
func (c *Class) HasMethod(name string) bool {
	c.mu.RLock()
	n := len(c.methods[name])
	c.mu.RUnlock()
	return n > 0 || (c.Def == nil && c.Type != nil && c.goMethod(name) != nil)
}

// goMethod adapts the exported Go method matching name, whose first letter
// may be lower case, and caches it as an instance method of c.
func (c *Class) goMethod(name string) *Method {
	if c.prim || name == "" {
		return nil
	}
	goName := strings.ToUpper(name[:1]) + name[1:]
	gm, ok := c.Type.MethodByName(goName)
	if !ok || gm.Type.IsVariadic() || gm.Type.NumOut() > 2 {
		return nil
	}
	if c.IsInterface() {
		// Interface methods have no receiver parameter.
		return nil
	}
	defer func() { _ = recover() }()
	m := newMethod(c, name, gm.Func.Interface(), false)
	c.mu.Lock()
	c.methods[name] = append(c.methods[name], m)
	c.mu.Unlock()
	return m
}

// Ctors returns the constructors taking arity arguments.
func (c *Class) Ctors(arity int) []*Method {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return withArity(c.ctors, arity)
}

// StaticField returns the named static field or nil.
func (c *Class) StaticField(name string) *Field {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sfields[name]
}

// Field returns the named instance field or nil.  Fields of deftype classes
// and exported struct fields are found as well as registered ones.
func (c *Class) Field(name string) *Field {
	c.mu.RLock()
	f := c.fields[name]
	c.mu.RUnlock()
	if f != nil {
		return f
	}
	if c.Def != nil {
		return c.defField(name)
	}
	return c.structField(name)
}

func (c *Class) defField(name string) *Field {
	i := c.Def.FieldIndex(name)
	if i < 0 {
		return nil
	}
	f := &Field{
		Class: c,
		Name:  name,
		Type:  Object,
		get: func(x any) (any, error) {
			return x.(*lang.Instance).Fields[i], nil
		},
	}
	if c.Def.Mutable[i] {
		f.set = func(x, v any) error {
			return x.(*lang.Instance).SetField(i, v)
		}
	}
	return f
}

func (c *Class) structField(name string) *Field {
	t := c.Type
	if t == nil || name == "" {
		return nil
	}
	ptr := t.Kind() == reflect.Ptr
	if ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	sf, ok := t.FieldByName(strings.ToUpper(name[:1]) + name[1:])
	if !ok || !sf.IsExported() {
		return nil
	}
	f := &Field{
		Class: c,
		Name:  name,
		Type:  ClassOf(sf.Type),
		get: func(x any) (any, error) {
			v := reflect.ValueOf(x)
			if ptr {
				v = v.Elem()
			}
			return Normalize(v.FieldByIndex(sf.Index)), nil
		},
	}
	if ptr {
		f.set = func(x, val any) error {
			cv, err := Coerce(val, sf.Type)
			if err != nil {
				return err
			}
			reflect.ValueOf(x).Elem().FieldByIndex(sf.Index).Set(cv)
			return nil
		}
	}
	return f
}

func withArity(ms []*Method, arity int) []*Method {
	var out []*Method
	for _, m := range ms {
		if m.Arity() == arity {
			out = append(out, m)
		}
	}
	return out
}
