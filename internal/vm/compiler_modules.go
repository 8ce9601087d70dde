package vm

import (
	"github.com/josedab/quicksilver/internal/ast"
)

// compileImport lowers an import declaration. The module loader is a host
// concern: LOAD_MODULE pushes the live namespace object and each specifier
// binds a property of it.
func (c *Compiler) compileImport(imp *ast.ImportDeclaration) error {
	c.emit(OP_LOAD_MODULE)
	c.emitU16(c.nameConstant(imp.Source))

	for _, spec := range imp.Specifiers {
		switch {
		case spec.Default:
			c.emit(OP_DUP)
			c.emit(OP_GET_PROPERTY)
			c.emitU16(c.nameConstant("default"))
			if err := c.bindImport(spec.Local.Name); err != nil {
				return err
			}
		case spec.Namespace:
			c.emit(OP_DUP)
			if err := c.bindImport(spec.Local.Name); err != nil {
				return err
			}
		default:
			imported := spec.Local.Name
			if spec.Imported != nil {
				imported = spec.Imported.Name
			}
			c.emit(OP_DUP)
			c.emit(OP_GET_PROPERTY)
			c.emitU16(c.nameConstant(imported))
			if err := c.bindImport(spec.Local.Name); err != nil {
				return err
			}
		}
	}

	// Drop the namespace object.
	c.emit(OP_POP)
	return nil
}

func (c *Compiler) bindImport(name string) error {
	if c.scopeDepth > 0 {
		_, err := c.addLocal(name)
		return err
	}
	c.emit(OP_DEFINE_GLOBAL)
	c.emitU16(c.nameConstant(name))
	return nil
}

// compileExport lowers the export forms onto EXPORT_VALUE / EXPORT_ALL.
func (c *Compiler) compileExport(export *ast.ExportDeclaration) error {
	switch export.Kind {
	case ast.ExportDeclarationKind:
		if err := c.compileStatement(export.Declaration); err != nil {
			return err
		}
		for _, name := range declarationNames(export.Declaration) {
			nameIdx := c.nameConstant(name)
			c.emit(OP_GET_GLOBAL)
			c.emitU16(nameIdx)
			c.emit(OP_EXPORT_VALUE)
			c.emitU16(nameIdx)
		}
		return nil

	case ast.ExportDefault:
		if err := c.compileExpr(export.Expression); err != nil {
			return err
		}
		c.emit(OP_EXPORT_VALUE)
		c.emitU16(c.nameConstant("default"))
		return nil

	case ast.ExportDefaultDeclaration:
		if err := c.compileStatement(export.Declaration); err != nil {
			return err
		}
		names := declarationNames(export.Declaration)
		if len(names) > 0 {
			c.emit(OP_GET_GLOBAL)
			c.emitU16(c.nameConstant(names[0]))
		} else {
			c.emit(OP_UNDEFINED)
		}
		c.emit(OP_EXPORT_VALUE)
		c.emitU16(c.nameConstant("default"))
		return nil

	case ast.ExportNamed:
		if export.Source != nil {
			// Re-export from another module.
			c.emit(OP_LOAD_MODULE)
			c.emitU16(c.nameConstant(*export.Source))
			for _, spec := range export.Specifiers {
				c.emit(OP_DUP)
				c.emit(OP_GET_PROPERTY)
				c.emitU16(c.nameConstant(spec.Local.Name))
				c.emit(OP_EXPORT_VALUE)
				c.emitU16(c.nameConstant(spec.Exported.Name))
			}
			c.emit(OP_POP)
			return nil
		}
		for _, spec := range export.Specifiers {
			c.emit(OP_GET_GLOBAL)
			c.emitU16(c.nameConstant(spec.Local.Name))
			c.emit(OP_EXPORT_VALUE)
			c.emitU16(c.nameConstant(spec.Exported.Name))
		}
		return nil

	case ast.ExportAllKind:
		c.emit(OP_LOAD_MODULE)
		c.emitU16(c.nameConstant(*export.Source))
		c.emit(OP_EXPORT_ALL)
		return nil

	case ast.ExportAllAs:
		c.emit(OP_LOAD_MODULE)
		c.emitU16(c.nameConstant(*export.Source))
		c.emit(OP_EXPORT_VALUE)
		c.emitU16(c.nameConstant(export.Exported.Name))
		return nil
	}
	return nil
}

// declarationNames extracts the bound names of a declaration for exporting.
func declarationNames(stmt ast.Statement) []string {
	var names []string
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		for _, d := range s.Declarations {
			collectVarsFromPattern(d.ID, &names)
		}
	case *ast.Function:
		if s.ID != nil {
			names = append(names, s.ID.Name)
		}
	case *ast.Class:
		if s.ID != nil {
			names = append(names, s.ID.Name)
		}
	}
	return names
}
