package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
)

// Document is the serializable authoring form of a graph. It carries
// everything a Graph does, with expressions as source text, so a graph
// exported with FromGraph and rebuilt with Build validates identically
// to the one it came from.
type Document struct {
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Variables []VariableDecl `json:"variables,omitempty" yaml:"variables,omitempty"`
	Nodes     []DocumentNode `json:"nodes" yaml:"nodes"`
	Edges     []DocumentEdge `json:"edges,omitempty" yaml:"edges,omitempty"`
	Starts    []string       `json:"start_nodes" yaml:"start_nodes"`
}

// VariableDecl declares a variable's type for static checking.
type VariableDecl struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// DocumentNode is one node in authoring form. Type selects the kind;
// the other fields are the payload for that kind.
type DocumentNode struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"`

	Speaker     string `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Text        string `json:"text,omitempty" yaml:"text,omitempty"`
	Portrait    string `json:"portrait,omitempty" yaml:"portrait,omitempty"`
	AutoAdvance bool   `json:"auto_advance,omitempty" yaml:"auto_advance,omitempty"`

	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`

	Effects []DocumentEffect `json:"effects,omitempty" yaml:"effects,omitempty"`

	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// DocumentEffect is one action effect in authoring form. Set/Value
// describe an assignment; Emit/Payload describe a custom event.
type DocumentEffect struct {
	Set   string `json:"set,omitempty" yaml:"set,omitempty"`
	Scope string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	Emit    string         `json:"emit,omitempty" yaml:"emit,omitempty"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// DocumentEdge is one transition in authoring form.
type DocumentEdge struct {
	From    string `json:"from" yaml:"from"`
	To      string `json:"to" yaml:"to"`
	Guard   string `json:"guard,omitempty" yaml:"guard,omitempty"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Ordinal int    `json:"ordinal,omitempty" yaml:"ordinal,omitempty"`
	When    *bool  `json:"when,omitempty" yaml:"when,omitempty"`
}

// FromFile loads a document from a YAML or JSON file, chosen by
// extension (.json means JSON, anything else YAML).
func FromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if filepath.Ext(path) == ".json" {
		return FromJSON(data)
	}
	return FromYAML(data)
}

// FromYAML parses a YAML document.
func FromYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml document: %w", err)
	}
	return &doc, nil
}

// FromJSON parses a JSON document.
func FromJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json document: %w", err)
	}
	return &doc, nil
}

// ToYAML encodes the document as YAML.
func (d *Document) ToYAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// ToJSON encodes the document as indented JSON.
func (d *Document) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Build turns the document into an immutable Graph. Unlike the Builder,
// which panics on programmer mistakes, Build reports data-level problems
// as errors: duplicate or empty ids, unknown node types, dangling edge
// endpoints, and unparseable expressions all come back joined.
func (d *Document) Build() (*Graph, error) {
	var errs []error

	seen := make(map[string]bool, len(d.Nodes))
	for i, dn := range d.Nodes {
		if strings.TrimSpace(dn.ID) == "" {
			errs = append(errs, fmt.Errorf("node %d: empty id", i))
			continue
		}
		if strings.ContainsAny(dn.ID, " \t\n\r") {
			errs = append(errs, fmt.Errorf("node %d: id %q contains whitespace", i, dn.ID))
			continue
		}
		if seen[dn.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateNode, dn.ID))
			continue
		}
		seen[dn.ID] = true

		switch dn.Type {
		case "text", "choice", "jump":
		case "condition":
			if strings.TrimSpace(dn.Condition) == "" {
				errs = append(errs, fmt.Errorf("node %s: condition requires an expression", dn.ID))
			}
		case "action":
			if len(dn.Effects) == 0 {
				errs = append(errs, fmt.Errorf("node %s: action requires at least one effect", dn.ID))
			}
			for j, eff := range dn.Effects {
				if _, err := docEffect(eff); err != nil {
					errs = append(errs, fmt.Errorf("node %s effect %d: %w", dn.ID, j, err))
				}
			}
		default:
			errs = append(errs, fmt.Errorf("node %s: unknown node type %q", dn.ID, dn.Type))
		}
		if dn.Type == "jump" && strings.TrimSpace(dn.Target) == "" {
			errs = append(errs, fmt.Errorf("node %s: jump requires a target", dn.ID))
		}
	}

	for i, de := range d.Edges {
		if strings.TrimSpace(de.From) == "" || strings.TrimSpace(de.To) == "" {
			errs = append(errs, fmt.Errorf("edge %d: empty endpoint", i))
		}
	}
	if len(d.Starts) == 0 {
		errs = append(errs, ErrNoStartNode)
	}
	for i, s := range d.Starts {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("start %d: empty id", i))
		}
	}

	decls := make(map[string]expr.Kind, len(d.Variables))
	for _, v := range d.Variables {
		kind, err := expr.KindFromString(v.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("variable %s: %w", v.Name, err))
			continue
		}
		decls[v.Name] = kind
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	b := NewBuilder().Name(d.Name)
	for name, kind := range decls {
		b.DeclareVar(name, kind)
	}
	for _, dn := range d.Nodes {
		id := NodeID(dn.ID)
		switch dn.Type {
		case "text":
			var opts []TextOption
			if dn.Portrait != "" {
				opts = append(opts, WithPortrait(dn.Portrait))
			}
			if dn.AutoAdvance {
				opts = append(opts, WithAutoAdvance())
			}
			b.AddText(id, dn.Speaker, dn.Text, opts...)
		case "choice":
			b.AddChoice(id)
		case "condition":
			b.AddCondition(id, dn.Condition)
		case "action":
			effects := make([]Effect, 0, len(dn.Effects))
			for _, eff := range dn.Effects {
				e, _ := docEffect(eff)
				effects = append(effects, e)
			}
			b.AddAction(id, effects...)
		case "jump":
			b.AddJump(id, NodeID(dn.Target))
		}
	}
	for _, de := range d.Edges {
		var opts []EdgeOption
		if de.Guard != "" {
			opts = append(opts, WithGuard(de.Guard))
		}
		if de.Label != "" {
			opts = append(opts, WithLabel(de.Label))
		}
		if de.Ordinal != 0 {
			opts = append(opts, WithOrdinal(de.Ordinal))
		}
		if de.When != nil {
			opts = append(opts, WithWhen(*de.When))
		}
		b.Connect(NodeID(de.From), NodeID(de.To), opts...)
	}
	for _, s := range d.Starts {
		b.AddStart(NodeID(s))
	}
	return b.Build()
}

// docEffect converts one authoring-form effect, reporting malformed ones.
func docEffect(eff DocumentEffect) (Effect, error) {
	switch {
	case eff.Set != "" && eff.Emit != "":
		return Effect{}, fmt.Errorf("effect sets both set and emit")
	case eff.Set != "":
		scope := ScopeLocal
		switch eff.Scope {
		case "", "local":
		case "global":
			scope = ScopeGlobal
		default:
			return Effect{}, fmt.Errorf("unknown scope %q", eff.Scope)
		}
		if strings.TrimSpace(eff.Value) == "" {
			return Effect{}, fmt.Errorf("assignment to %s has no value expression", eff.Set)
		}
		return Assign(scope, eff.Set, eff.Value), nil
	case eff.Emit != "":
		return Emit(eff.Emit, eff.Payload), nil
	default:
		return Effect{}, fmt.Errorf("effect needs set or emit")
	}
}

// FromGraph exports a graph back to authoring form. The export is
// lossless: building the returned document yields a graph with the same
// nodes, edges, ordering, declarations and starts, and therefore the
// same validation outcome.
func FromGraph(g *Graph) *Document {
	doc := &Document{Name: g.Name()}

	decls := g.Declarations()
	names := make([]string, 0, len(decls))
	for name := range decls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		doc.Variables = append(doc.Variables, VariableDecl{Name: name, Type: decls[name].String()})
	}

	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		dn := DocumentNode{ID: string(n.ID), Type: n.Kind.String()}
		switch n.Kind {
		case KindText:
			dn.Speaker = n.Speaker
			dn.Text = n.Text
			dn.Portrait = n.Portrait
			dn.AutoAdvance = n.AutoAdvance
		case KindCondition:
			dn.Condition = n.Condition.Source()
		case KindAction:
			for _, eff := range n.Effects {
				switch eff.Kind {
				case EffectAssign:
					dn.Effects = append(dn.Effects, DocumentEffect{
						Set:   eff.Name,
						Scope: eff.Scope.String(),
						Value: eff.Src,
					})
				case EffectEmit:
					dn.Effects = append(dn.Effects, DocumentEffect{
						Emit:    eff.Event,
						Payload: eff.Payload,
					})
				}
			}
		case KindJump:
			dn.Target = string(n.Target)
		}
		doc.Nodes = append(doc.Nodes, dn)

		for _, e := range n.Edges() {
			de := DocumentEdge{
				From:    string(e.From),
				To:      string(e.To),
				Label:   e.Label,
				Ordinal: e.Ordinal,
				When:    e.When,
			}
			if e.Guard != nil {
				de.Guard = e.Guard.Source()
			}
			doc.Edges = append(doc.Edges, de)
		}
	}

	for _, s := range g.Starts() {
		doc.Starts = append(doc.Starts, string(s))
	}
	return doc
}
