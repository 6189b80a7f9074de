package remote

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/graphsync/internal/journal"
	"github.com/roach88/graphsync/internal/source"
)

// Seed describes a project tree to build in one go. It is decoded from CUE
// seed files and from scenario YAML.
type Seed struct {
	Name    string       `json:"name" yaml:"name"`
	Systems []SeedSystem `json:"systems,omitempty" yaml:"systems,omitempty"`
	Values  []SeedValue  `json:"values,omitempty" yaml:"values,omitempty"`
}

type SeedSystem struct {
	Name     string       `json:"name" yaml:"name"`
	Location string       `json:"location,omitempty" yaml:"location,omitempty"`
	Objects  []SeedObject `json:"objects,omitempty" yaml:"objects,omitempty"`
}

type SeedObject struct {
	Name     string       `json:"name" yaml:"name"`
	Root     bool         `json:"root,omitempty" yaml:"root,omitempty"`
	States   []SeedState  `json:"states,omitempty" yaml:"states,omitempty"`
	Actions  []SeedAction `json:"actions,omitempty" yaml:"actions,omitempty"`
	Children []SeedObject `json:"children,omitempty" yaml:"children,omitempty"`
}

type SeedState struct {
	Name        string       `json:"name" yaml:"name"`
	AccessLevel string       `json:"access_level,omitempty" yaml:"access_level,omitempty"`
	Getters     []SeedGetter `json:"getters,omitempty" yaml:"getters,omitempty"`
	Setters     []SeedSetter `json:"setters,omitempty" yaml:"setters,omitempty"`
}

type SeedAction struct {
	Name string `json:"name" yaml:"name"`
}

type SeedGetter struct {
	Name   string `json:"name" yaml:"name"`
	Result string `json:"result,omitempty" yaml:"result,omitempty"`
}

type SeedSetter struct {
	Name      string `json:"name" yaml:"name"`
	Parameter string `json:"parameter,omitempty" yaml:"parameter,omitempty"`
}

type SeedValue struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// LoadSeed reads the `project` field of a CUE file, or of the CUE package
// in a directory.
func LoadSeed(path string) (Seed, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Seed{}, fmt.Errorf("seed: %w", err)
	}

	cctx := cuecontext.New()
	var v cue.Value
	if info.IsDir() {
		insts := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(insts) == 0 {
			return Seed{}, fmt.Errorf("seed %s: no CUE instances loaded", path)
		}
		if err := insts[0].Err; err != nil {
			return Seed{}, fmt.Errorf("seed %s: loading CUE files: %w", path, err)
		}
		v = cctx.BuildInstance(insts[0])
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return Seed{}, fmt.Errorf("seed: %w", err)
		}
		v = cctx.CompileBytes(data, cue.Filename(path))
	}
	if err := v.Err(); err != nil {
		return Seed{}, fmt.Errorf("seed %s: building CUE value: %w", path, err)
	}
	return DecodeSeed(v)
}

// DecodeSeed decodes the `project` field of a built CUE value.
func DecodeSeed(v cue.Value) (Seed, error) {
	pv := v.LookupPath(cue.ParsePath("project"))
	if !pv.Exists() {
		return Seed{}, errors.New("seed: missing project field")
	}
	if err := pv.Validate(cue.Concrete(true)); err != nil {
		return Seed{}, fmt.Errorf("seed: %w", err)
	}
	var s Seed
	if err := pv.Decode(&s); err != nil {
		return Seed{}, fmt.Errorf("seed: decode: %w", err)
	}
	if s.Name == "" {
		return Seed{}, errors.New("seed: project name is required")
	}
	return s, nil
}

// Seed commits the whole tree described by s as a new project and returns
// the project's snapshot. Nothing is delivered to listeners of existing
// documents since every document is new.
func (r *Remote) Seed(ctx context.Context, s Seed) (source.Diff, error) {
	if err := ctx.Err(); err != nil {
		return source.Diff{}, err
	}
	r.mu.Lock()
	b := seeder{r: r, ctx: ctx}
	project := b.create(source.KindProject, "", "", s.Name, nil)
	for _, sys := range s.Systems {
		var fields map[string]string
		if sys.Location != "" {
			fields = map[string]string{source.FieldLocation: sys.Location}
		}
		sid := b.create(source.KindSystem, project, "", sys.Name, fields)
		for _, o := range sys.Objects {
			b.object(sid, "", o)
		}
	}
	for _, v := range s.Values {
		b.create(source.KindValue, project, "", v.Name, map[string]string{source.FieldDescription: v.Description})
	}
	var d source.Diff
	if b.err == nil {
		d = r.docs[project].diff()
	}
	r.mu.Unlock()

	r.flush()
	return d, b.err
}

// seeder commits create records and keeps the first error.
type seeder struct {
	r   *Remote
	ctx context.Context
	err error
}

func (b *seeder) create(kind source.Kind, owner source.ID, parent source.Target, name string, fields map[string]string) source.ID {
	if b.err != nil {
		return ""
	}
	rec := journal.Record{
		Op:     journal.OpCreate,
		Doc:    source.ID(b.r.ids.Generate()),
		Kind:   kind,
		Owner:  owner,
		Target: source.Target(b.r.ids.Generate()),
		Parent: parent,
		Name:   name,
		Fields: fields,
	}
	if err := b.r.commit(b.ctx, &rec); err != nil {
		b.err = err
		return ""
	}
	return rec.Doc
}

func (b *seeder) object(system source.ID, parent source.Target, o SeedObject) {
	role := "node"
	if o.Root {
		role = "root"
	}
	id := b.create(source.KindObject, system, parent, o.Name, map[string]string{source.FieldRole: role})
	if b.err != nil {
		return
	}
	target := b.r.docs[id].target
	for _, st := range o.States {
		level := st.AccessLevel
		if level == "" {
			level = "read_write"
		}
		sid := b.create(source.KindState, id, "", st.Name, map[string]string{source.FieldAccessLevel: level})
		for _, g := range st.Getters {
			b.create(source.KindGetter, sid, "", g.Name, map[string]string{source.FieldResult: g.Result})
		}
		for _, x := range st.Setters {
			b.create(source.KindSetter, sid, "", x.Name, map[string]string{source.FieldParameter: x.Parameter})
		}
	}
	for _, a := range o.Actions {
		b.create(source.KindAction, id, "", a.Name, nil)
	}
	for _, c := range o.Children {
		b.object(system, target, c)
	}
}
