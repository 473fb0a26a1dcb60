package page

import (
	"fmt"
	"time"
)

// Property is an ordered name/value page property. Provenance metadata is
// carried separately and never appears here.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is one page in the source or reconstructed tree. Contents is only
// populated between the fetch and export stages and never survives
// flattening.
type Node struct {
	Lib          string     `json:"lib"`
	ID           string     `json:"id"`
	Path         string     `json:"path"`
	URL          string     `json:"url,omitempty"`
	Title        string     `json:"title"`
	Tags         []string   `json:"tags,omitempty"`
	Props        []Property `json:"props,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Contents     string     `json:"contents,omitempty"`
	Subpages     []*Node    `json:"subpages,omitempty"`
	Root         bool       `json:"root"`
	Parent       string     `json:"parent,omitempty"`
	NumPrefix    string     `json:"urlNumPrefix,omitempty"`
	TitleExtract string     `json:"urlTitleExtract,omitempty"`
}

// Meta is one flattened metadata entry: a Node stripped of contents and
// subpages, durable across the asynchronous translation boundary.
type Meta struct {
	Lib          string     `json:"lib"`
	ID           string     `json:"id"`
	Path         string     `json:"path"`
	URL          string     `json:"url,omitempty"`
	Title        string     `json:"title"`
	Tags         []string   `json:"tags,omitempty"`
	Props        []Property `json:"props,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Root         bool       `json:"root"`
	Parent       string     `json:"parent,omitempty"`
	NumPrefix    string     `json:"urlNumPrefix,omitempty"`
	TitleExtract string     `json:"urlTitleExtract,omitempty"`
}

// JobRecord is the durable correlation artifact written once per job and
// read once by the correlator. It is keyed deterministically from the
// root's (lib, id) and never mutated.
type JobRecord struct {
	Lib         string    `json:"lib"`
	ID          string    `json:"id"`
	PageCount   int       `json:"pageCount"`
	Uploaded    time.Time `json:"uploaded"`
	AllPages    []Meta    `json:"allPages"`
	TargetLib   string    `json:"targetLib"`
	TargetPath  string    `json:"targetPath"`
	NotifyAddrs []string  `json:"notifyAddrs,omitempty"`
}

// Fragment is one page read back from a translated output file. Structural
// fields are absent until merged against the stored Meta with the same
// (lib, id).
type Fragment struct {
	Lib      string
	ID       string
	Title    string
	Summary  string
	Contents string
}

// Key returns the identity key used to match fragments against metadata.
func Key(lib, id string) string { return lib + "|" + id }

// Flatten serializes a tree into a pre-order list of Meta entries: a node
// always precedes its subtree.
func Flatten(n *Node) []Meta {
	if n == nil {
		return nil
	}
	out := []Meta{toMeta(n)}
	for _, sp := range n.Subpages {
		out = append(out, Flatten(sp)...)
	}
	return out
}

func toMeta(n *Node) Meta {
	return Meta{
		Lib:          n.Lib,
		ID:           n.ID,
		Path:         n.Path,
		URL:          n.URL,
		Title:        n.Title,
		Tags:         n.Tags,
		Props:        n.Props,
		Summary:      n.Summary,
		Root:         n.Root,
		Parent:       n.Parent,
		NumPrefix:    n.NumPrefix,
		TitleExtract: n.TitleExtract,
	}
}

// Walk visits every node pre-order.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, sp := range n.Subpages {
		Walk(sp, fn)
	}
}

// Count returns the total number of nodes in the tree.
func Count(n *Node) int {
	total := 0
	Walk(n, func(*Node) { total++ })
	return total
}

// ErrNoRoot is returned by BuildTree when no node carries the root flag.
var ErrNoRoot = fmt.Errorf("no root node in flat set")

// Merge combines a translated fragment with its stored metadata entry.
// Translated text fields win over the originals; all structural fields
// come from the metadata.
func Merge(f Fragment, m Meta) *Node {
	n := &Node{
		Lib:          m.Lib,
		ID:           m.ID,
		Path:         m.Path,
		URL:          m.URL,
		Title:        m.Title,
		Tags:         m.Tags,
		Props:        m.Props,
		Summary:      m.Summary,
		Contents:     f.Contents,
		Root:         m.Root,
		Parent:       m.Parent,
		NumPrefix:    m.NumPrefix,
		TitleExtract: m.TitleExtract,
	}
	if f.Title != "" {
		n.Title = f.Title
	}
	if f.Summary != "" {
		n.Summary = f.Summary
	}
	return n
}

// BuildTree rebuilds the hierarchy from a flat node set by parent-id
// linkage: the single root node is selected, then every non-root node is
// attached depth-first under the node whose id its parent field names.
func BuildTree(nodes []*Node) (*Node, error) {
	var root *Node
	for _, n := range nodes {
		if n.Root {
			root = n
			break
		}
	}
	if root == nil {
		return nil, ErrNoRoot
	}
	attach(root, nodes)
	return root, nil
}

func attach(parent *Node, nodes []*Node) {
	parent.Subpages = nil
	for _, n := range nodes {
		if !n.Root && n.Lib == parent.Lib && n.Parent == parent.ID {
			parent.Subpages = append(parent.Subpages, n)
		}
	}
	for _, sp := range parent.Subpages {
		attach(sp, nodes)
	}
}
