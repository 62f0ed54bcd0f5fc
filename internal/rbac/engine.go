package rbac

// PolicyTable maps resource kind and action to the governing policy.
type PolicyTable map[ResourceKind]map[Action]Policy

// DefaultPolicies returns the platform policy table.
//
// Moderators curate but never author content, and only owners may destroy it.
// Registration is reserved to anonymous visitors.
func DefaultPolicies() PolicyTable {
	authenticated := Is(IsAuthenticated)
	owner := And(Is(IsAuthenticated), Is(IsOwner))
	moderatorOrOwner := Or(Is(IsModerator), owner)
	author := And(Is(IsAuthenticated), Not(Is(IsModerator)))

	return PolicyTable{
		KindCourse: {
			ActionList:     authenticated,
			ActionRetrieve: authenticated,
			ActionCreate:   author,
			ActionUpdate:   moderatorOrOwner,
			ActionDelete:   owner,
		},
		KindLesson: {
			ActionList:     moderatorOrOwner,
			ActionRetrieve: moderatorOrOwner,
			ActionCreate:   author,
			ActionUpdate:   moderatorOrOwner,
			ActionDelete:   owner,
		},
		KindUserProfile: {
			ActionList:     authenticated,
			ActionRetrieve: authenticated,
			ActionCreate:   Not(Is(IsAuthenticated)),
			ActionUpdate:   owner,
			ActionDelete:   Is(IsModerator),
		},
		KindPayment: {
			ActionList:   Is(IsModerator),
			ActionCreate: authenticated,
		},
		KindSubscription: {
			ActionCreate: authenticated,
		},
	}
}

// Observer receives every decision taken by the engine.
type Observer func(kind ResourceKind, action Action, decision Decision)

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithObserver registers a decision observer, typically a metrics counter.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithPolicies replaces the policy table.
func WithPolicies(table PolicyTable) EngineOption {
	return func(e *Engine) { e.policies = table }
}

// Engine evaluates the policy table. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	policies PolicyTable
	observer Observer
}

// NewEngine constructs an Engine over DefaultPolicies.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{policies: DefaultPolicies()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide evaluates whether actor may perform action on a resource of kind.
// Pass a nil resource for collection-level checks (list, create). Unknown
// kind/action pairs are denied.
func (e *Engine) Decide(actor Actor, action Action, kind ResourceKind, res *Resource) Decision {
	decision := Forbidden
	if policy, ok := e.policies[kind][action]; ok && policy.Eval(actor, res) {
		decision = Allow
	}
	if decision != Allow && !actor.Authenticated {
		decision = Unauthenticated
	}
	if e.observer != nil {
		e.observer(kind, action, decision)
	}
	return decision
}

// Authorize is Decide returning an error suitable for httpx.RespondError.
func (e *Engine) Authorize(actor Actor, action Action, kind ResourceKind, res *Resource) error {
	return e.Decide(actor, action, kind, res).Err(action, kind)
}
