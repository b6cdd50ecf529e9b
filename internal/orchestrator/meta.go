package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/domain"
	"github.com/toolgraph/shgat/internal/graphstore"
)

// MetaDecoration is the extra detail attached to a CapabilityResult whose
// code snippet references nested capabilities via "$cap:<uuid>" tokens
// (spec.md §6): one entry per referenced capability, carrying the call
// name an executor needs to invoke it directly rather than re-resolving
// the reference itself. No input schema is resolved: InputSchema is
// always nil.
type MetaDecoration struct {
	ReferencedCapabilities []NestedCapability
}

// NestedCapability is one "$cap:<uuid>" reference resolved to its call
// name. InputSchema is left nil by resolveCallName.
type NestedCapability struct {
	CapabilityID uuid.UUID
	CallName     string
	InputSchema  map[string]any
}

// decorateMeta builds a MetaDecoration for a capability if its code
// snippet references nested capabilities, resolving each reference's
// call name the same way DiscoverCapabilities resolves top-level call
// names: registry lookup first, FQDN parsing as fallback. Returns nil if
// the capability isn't a meta-capability or none of its references
// resolve to a known capability.
func (o *Orchestrator) decorateMeta(ctx context.Context, store *graphstore.Store, c *domain.Capability) *MetaDecoration {
	refs := domain.ReferencedCapabilityIDs(c.CodeSnippet)
	if len(refs) == 0 {
		return nil
	}

	var out MetaDecoration
	for _, refID := range refs {
		nested, ok := store.GetCapability(refID)
		if !ok {
			continue
		}
		callName, schema := o.resolveCallName(ctx, nested)
		out.ReferencedCapabilities = append(out.ReferencedCapabilities, NestedCapability{
			CapabilityID: refID,
			CallName:     callName,
			InputSchema:  schema,
		})
	}
	if len(out.ReferencedCapabilities) == 0 {
		return nil
	}
	return &out
}

// resolveCallName resolves a capability's externally-callable name:
// registry lookup by a workflow-pattern id derived from the FQDN's
// hash segment, falling back to FQDN-derived "namespace:action" when the
// registry has no record (spec.md §6's "registry, else FQDN parsing").
func (o *Orchestrator) resolveCallName(ctx context.Context, c *domain.Capability) (string, map[string]any) {
	if o.Registry != nil {
		if rec, err := o.Registry.GetByWorkflowPatternID(ctx, string(c.FQDN)); err == nil && rec != nil {
			return rec.Namespace + ":" + rec.Action, nil
		}
	}
	parts, err := domain.ParseFQDN(c.FQDN)
	if err != nil {
		return string(c.FQDN), nil
	}
	return parts.CallName(), nil
}
