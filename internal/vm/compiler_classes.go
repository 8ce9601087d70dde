package vm

import (
	"github.com/josedab/quicksilver/internal/ast"
)

// compileClassDecl lowers a class declaration. The member tables are built
// at compile time and the class ships as a single constant; only complex
// static field initializers defer to runtime.
func (c *Compiler) compileClassDecl(class *ast.Class) error {
	return c.compileClass(class, true)
}

func (c *Compiler) compileClassExpr(class *ast.Class) error {
	return c.compileClass(class, false)
}

// complexStaticField is a static field whose initializer needs runtime
// evaluation after the class binding exists.
type complexStaticField struct {
	name string
	init ast.Expression
}

func (c *Compiler) compileClass(class *ast.Class, isDecl bool) error {
	data := &ClassData{
		PrototypeMethods: make(map[string]Value),
		Getters:          make(map[string]Value),
		Setters:          make(map[string]Value),
		StaticMethods:    make(map[string]Value),
		StaticGetters:    make(map[string]Value),
		StaticSetters:    make(map[string]Value),
		InstanceFields:   make(map[string]Value),
	}
	if class.ID != nil {
		data.Name = class.ID.Name
	}

	var deferredStatics []complexStaticField

	for _, element := range class.Body {
		switch {
		case element.Method != nil:
			method := element.Method
			compiled, err := c.compileFunctionBody(method.Value)
			if err != nil {
				return err
			}
			methodValue := ObjVal(NewFunctionObject(compiled, method.Value.IsAsync, method.Value.IsGenerator))

			if method.Kind == ast.MethodConstructor {
				data.Constructor = &methodValue
				continue
			}

			name, ok := classMemberName(method.Key)
			if !ok {
				// Computed member names defer to the interpreter; skipped.
				continue
			}

			if method.IsStatic {
				switch method.Kind {
				case ast.MethodGet:
					data.StaticGetters[name] = methodValue
				case ast.MethodSet:
					data.StaticSetters[name] = methodValue
				default:
					data.StaticMethods[name] = methodValue
				}
			} else {
				switch method.Kind {
				case ast.MethodGet:
					data.Getters[name] = methodValue
				case ast.MethodSet:
					data.Setters[name] = methodValue
				default:
					data.PrototypeMethods[name] = methodValue
				}
			}

		case element.Property != nil:
			prop := element.Property
			name, ok := classMemberName(prop.Key)
			if !ok {
				continue
			}

			if prop.IsStatic {
				if prop.Value == nil {
					data.StaticMethods[name] = UndefinedVal()
					continue
				}
				if v, folded := c.tryEvalLiteral(prop.Value); folded {
					data.StaticMethods[name] = v
				} else {
					deferredStatics = append(deferredStatics, complexStaticField{name: name, init: prop.Value})
				}
				continue
			}

			// Instance fields resolve literal initializers at compile time.
			value := UndefinedVal()
			if prop.Value != nil {
				if v, folded := c.tryEvalLiteral(prop.Value); folded {
					value = v
				}
			}
			data.InstanceFields[name] = value

		case element.StaticBlock != nil:
			// Static blocks are not yet supported.
		}
	}

	classIdx := c.chunk.AddConstant(ObjVal(NewClassObject(data)))
	c.emit(OP_CONSTANT)
	c.emitU16(uint16(classIdx))

	// extends: evaluate the superclass and install the prototype chain.
	if class.SuperClass != nil {
		if err := c.compileExpr(class.SuperClass); err != nil {
			return err
		}
		c.emit(OP_SET_SUPER_CLASS)
	}

	if isDecl && class.ID != nil {
		if c.scopeDepth > 0 {
			if _, err := c.addLocal(class.ID.Name); err != nil {
				return err
			}
		} else {
			c.emit(OP_DEFINE_GLOBAL)
			c.emitU16(c.nameConstant(class.ID.Name))
		}
	}

	// Deferred static fields initialize against the bound class.
	for _, field := range deferredStatics {
		if class.ID != nil {
			if slot, ok := c.resolveLocal(class.ID.Name); ok {
				c.emit(OP_GET_LOCAL)
				c.emitByte(slot)
			} else {
				c.emit(OP_GET_GLOBAL)
				c.emitU16(c.nameConstant(class.ID.Name))
			}
		} else {
			// Anonymous class expression: the class value is on the stack.
			c.emit(OP_DUP)
		}
		if err := c.compileExpr(field.init); err != nil {
			return err
		}
		c.emit(OP_SET_PROPERTY)
		c.emitU16(c.nameConstant(field.name))
		c.emit(OP_POP)
	}

	return nil
}

// classMemberName resolves a class member key to its storage name; private
// members keep a '#' prefix separating the namespaces.
func classMemberName(key ast.PropertyKey) (string, bool) {
	switch {
	case key.Identifier != nil:
		return key.Identifier.Name, true
	case key.String != nil:
		return *key.String, true
	case key.Number != nil:
		return NumberToString(*key.Number), true
	case key.Private != nil:
		return "#" + *key.Private, true
	}
	return "", false
}
