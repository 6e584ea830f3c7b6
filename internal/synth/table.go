package synth

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"flowforge/internal/gofile"
	"flowforge/internal/ident"
	"flowforge/internal/manifest"
	"flowforge/internal/resource"
	"flowforge/internal/workspace"
)

// TableSynth compiles table declarations into per-table schema packages,
// keeps the schema index current and drives the migration collaborator.
type TableSynth struct {
	Deps
}

func NewTableSynth(d Deps) *TableSynth {
	return &TableSynth{Deps: d}
}

var columnBuilders = map[string]string{
	resource.ColInteger: "Integer",
	resource.ColText:    "Text",
	resource.ColReal:    "Real",
	resource.ColBoolean: "Boolean",
}

// Upsert writes the table's schema artifact, regenerates the index and
// runs the two-step migration. Re-upserting an identical payload yields a
// byte-identical artifact.
func (s *TableSynth) Upsert(ctx context.Context, t resource.Table) (Outcome, error) {
	src, err := s.render(t)
	if err != nil {
		return Outcome{}, err
	}

	tbl := ident.PackageName(t.TableName)
	artifact := path.Join(SchemaDir, tbl, tbl+".go")
	if err := s.WS.WriteFile(artifact, src); err != nil {
		return Outcome{}, err
	}

	if err := s.regenIndex(); err != nil {
		return Outcome{}, err
	}

	m, version, err := s.Manifests.Read(ctx, manifest.KindTable)
	if err != nil {
		return Outcome{}, err
	}
	payload, err := manifest.Encode(t)
	if err != nil {
		return Outcome{}, err
	}
	m[t.TableName] = payload
	if err := s.Manifests.Write(ctx, manifest.KindTable, m, version); err != nil {
		return Outcome{}, err
	}

	if err := s.Migrator.Sync(ctx); err != nil {
		return Outcome{}, fmt.Errorf("table %s: %w", t.TableName, err)
	}

	return Outcome{Message: fmt.Sprintf("table %s synthesized", t.TableName)}, nil
}

// Delete archives the schema package (the source is never hard-deleted),
// regenerates the index, drops the table from storage and re-syncs
// migrations. Archival trouble downgrades to a warning.
func (s *TableSynth) Delete(ctx context.Context, tableName string) (Outcome, error) {
	tbl := ident.PackageName(tableName)
	var warnings []string

	dir := path.Join(SchemaDir, tbl)
	if s.WS.Exists(dir) {
		if _, err := s.WS.Archive(dir, path.Join(SchemaDir, workspace.ArchiveDir)); err != nil {
			warnings = append(warnings, fmt.Sprintf("archive schema %s: %v", tbl, err))
		}
	} else {
		warnings = append(warnings, fmt.Sprintf("schema artifact for %s already absent", tbl))
	}

	if err := s.regenIndex(); err != nil {
		return Outcome{}, err
	}

	m, version, err := s.Manifests.Read(ctx, manifest.KindTable)
	if err != nil {
		return Outcome{}, err
	}
	delete(m, tableName)
	if err := s.Manifests.Write(ctx, manifest.KindTable, m, version); err != nil {
		return Outcome{}, err
	}

	if err := s.DB.DropTable(ctx, tbl); err != nil {
		return Outcome{}, err
	}
	if err := s.Migrator.Sync(ctx); err != nil {
		return Outcome{}, fmt.Errorf("table %s: %w", tableName, err)
	}

	return Outcome{
		Message:  fmt.Sprintf("table %s archived and dropped", tableName),
		Warnings: warnings,
	}, nil
}

// render builds the schema artifact for one table.
func (s *TableSynth) render(t resource.Table) ([]byte, error) {
	tbl := ident.PackageName(t.TableName)
	f := gofile.New(tbl)
	f.AddImport("", importSQLSchema)

	calls := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		call, err := s.columnCall(f, tbl, c)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	var b strings.Builder
	b.WriteString("sqlschema.NewTable(" + strconv.Quote(tbl) + ",\n")
	for _, call := range calls {
		b.WriteString(call + ",\n")
	}
	b.WriteString(")")
	f.Var("Table", b.String())

	return f.Bytes()
}

// columnCall renders one column builder chain. Modifiers apply in fixed
// order: primary key (with auto-increment) -> not-null -> default ->
// foreign key.
func (s *TableSynth) columnCall(f *gofile.File, owner string, c resource.Column) (string, error) {
	builder, ok := columnBuilders[c.Type]
	if !ok {
		return "", preconditionf("unknown column type %q for column %q", c.Type, c.Name)
	}

	call := fmt.Sprintf("sqlschema.%s(%s)", builder, strconv.Quote(ident.Sanitize(c.Name)))
	if c.PrimaryKey {
		call += ".PrimaryKey()"
		// autoIncrement is only meaningful with primaryKey
		if c.AutoIncrement {
			call += ".AutoIncrement()"
		}
	}
	if c.NotNull {
		call += ".NotNull()"
	}
	if c.Default != nil {
		switch c.Default.(type) {
		case string, float64, bool:
			call += ".Default(" + gofile.Lit(c.Default) + ")"
		default:
			return "", preconditionf("unsupported default for column %q", c.Name)
		}
	}
	if fk := c.ForeignKey; fk != nil {
		onDelete := ""
		if fk.OnDelete != "" {
			onDelete = ", " + strconv.Quote(fk.OnDelete)
		}
		target := ident.PackageName(fk.Table)
		if target == owner {
			// A package cannot import itself; the table's own generated
			// identifier resolves the reference lazily.
			call += fmt.Sprintf(".SelfReference(%s%s)", strconv.Quote(ident.Sanitize(fk.Column)), onDelete)
		} else {
			f.AddImport(target, s.WS.Module+"/"+SchemaDir+"/"+target)
			call += fmt.Sprintf(".References(%s.Table, %s%s)", target, strconv.Quote(ident.Sanitize(fk.Column)), onDelete)
		}
	}
	return call, nil
}

// regenIndex rewrites the schema index re-exporting every table package
// in the schema directory, sorted by name, skipping archived trees.
func (s *TableSynth) regenIndex() error {
	names, err := s.WS.DirNames(SchemaDir)
	if err != nil {
		return err
	}

	f := gofile.New("schema")
	f.AddImport("", importSQLSchema)
	var entries []string
	for _, n := range names {
		if n == workspace.ArchiveDir {
			continue
		}
		f.AddImport(n, s.WS.Module+"/"+SchemaDir+"/"+n)
		entries = append(entries, n+".Table")
	}

	if len(entries) == 0 {
		f.Var("Tables", "[]*sqlschema.Table{}")
	} else {
		f.Var("Tables", "[]*sqlschema.Table{\n"+strings.Join(entries, ",\n")+",\n}")
	}

	src, err := f.Bytes()
	if err != nil {
		return err
	}
	return s.WS.WriteFile(path.Join(SchemaDir, "index.go"), src)
}
