// Package schema implements the content-addressed schema graph described in
// §3.3: a recursive PluginSchema/MethodSchema model whose hash changes iff
// any descendant surface changes, normalized so insertion order on the
// implementer side never affects the hash.
package schema

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

type (
	// MethodSchema describes a single method exposed by an activation.
	MethodSchema struct {
		Name        string     `json:"name" yaml:"name"`
		Description string     `json:"description" yaml:"description"`
		Params      *JSONSchema `json:"params,omitempty" yaml:"params,omitempty"`
		Returns     *JSONSchema `json:"returns,omitempty" yaml:"returns,omitempty"`
		Streaming   bool       `json:"streaming" yaml:"streaming"`
	}

	// PluginSchema describes one activation (leaf or interior) and,
	// recursively, its children.
	PluginSchema struct {
		Namespace   string         `json:"namespace" yaml:"namespace"`
		Version     string         `json:"version" yaml:"version"`
		Description string         `json:"description" yaml:"description"`
		PluginID    uuid.UUID      `json:"plugin_id" yaml:"plugin_id"`
		Methods     []MethodSchema `json:"methods" yaml:"methods"`
		Children    []PluginSchema `json:"children,omitempty" yaml:"children,omitempty"`
	}
)

// MethodHash returns the 64-bit content digest of m, covering name and
// everything that would change the method's call contract (description is
// intentionally excluded — prose changes should not invalidate client
// generated types; only streaming/params/returns define the contract).
func (m MethodSchema) MethodHash() uint64 {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%t\x00", m.Name, m.Streaming)
	if m.Params != nil {
		h.Write(m.Params.Canonical())
	}
	h.Write([]byte{0})
	if m.Returns != nil {
		h.Write(m.Returns.Canonical())
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// Canonicalize returns a copy of p with Methods sorted by name and Children
// sorted by (name, namespace) — i.e. (Namespace) since a plugin's position
// among siblings is keyed by its own namespace — recursively. This is the
// single normalization step both Hash and any serialization-for-hashing
// path must go through, so "hashed one order, serialized another" bugs are
// structurally impossible (§C.4 of SPEC_FULL.md).
func (p PluginSchema) Canonicalize() PluginSchema {
	out := p
	out.Methods = append([]MethodSchema(nil), p.Methods...)
	sort.Slice(out.Methods, func(i, j int) bool { return out.Methods[i].Name < out.Methods[j].Name })

	out.Children = make([]PluginSchema, len(p.Children))
	for i, c := range p.Children {
		out.Children[i] = c.Canonicalize()
	}
	sort.Slice(out.Children, func(i, j int) bool {
		if out.Children[i].Name() != out.Children[j].Name() {
			return out.Children[i].Name() < out.Children[j].Name()
		}
		return out.Children[i].Namespace < out.Children[j].Namespace
	})
	return out
}

// Name returns the child's sort key. Defined as a method rather than inline
// field access so the (name, namespace) tie-break in Canonicalize reads the
// same whether "name" means Namespace or a future distinct display name;
// today they coincide.
func (p PluginSchema) Name() string { return p.Namespace }

// Hash computes the content hash of p (§3.3): the hash of a leaf is
// H(namespace ∥ version ∥ sorted(method.name ∥ method.hash)…); the hash of
// an interior plugin additionally folds sorted child hashes. Hash
// canonicalizes p first, so insertion order never affects the result.
func (p PluginSchema) Hash() string {
	c := p.Canonicalize()
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", c.Namespace, c.Version)
	for _, m := range c.Methods {
		fmt.Fprintf(h, "%s\x00%016x\x00", m.Name, m.MethodHash())
	}
	for _, child := range c.Children {
		fmt.Fprintf(h, "%s\x00", child.Hash())
	}
	sum := h.Sum(nil)
	return fmt.Sprintf("%016x", sum[:8])
}
