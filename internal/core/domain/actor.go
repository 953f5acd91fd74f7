package domain

// ActorKind names the variant held by an Actor.
type ActorKind string

const (
	KindAnonymous ActorKind = "anonymous"
	KindCustomer  ActorKind = "customer"
	KindEmployee  ActorKind = "employee"
)

// Actor is the resolved identity of the current visitor. It is a closed set:
// Anonymous, Customer or Employee.
type Actor interface {
	Kind() ActorKind
	sealed()
}

// Anonymous is a visitor with no customer session and no employee session.
type Anonymous struct{}

// Customer is a visitor holding a session issued by the session provider.
type Customer struct {
	SessionID string
	UserID    string
	Email     string
}

// Employee is a visitor that passed the employee credential check. It never
// comes from the session provider.
type Employee struct {
	EmployeeToken string
}

func (Anonymous) Kind() ActorKind { return KindAnonymous }
func (Customer) Kind() ActorKind  { return KindCustomer }
func (Employee) Kind() ActorKind  { return KindEmployee }

func (Anonymous) sealed() {}
func (Customer) sealed()  {}
func (Employee) sealed()  {}

// ActorFromSession maps a provider session to the customer actor, or to
// Anonymous when there is no session.
func ActorFromSession(s *Session) Actor {
	if s == nil {
		return Anonymous{}
	}
	return Customer{SessionID: s.ID, UserID: s.UserID, Email: s.Email}
}

// IsAnonymous reports whether a is known and anonymous. A nil actor means
// "not resolved yet" and is not anonymous.
func IsAnonymous(a Actor) bool {
	return a != nil && a.Kind() == KindAnonymous
}

// AuthState is the observable authentication state of one visitor.
// Actor is nil while Loading is true.
type AuthState struct {
	Actor   Actor
	Loading bool
}

// Viewer is the boundary view handed to the UI layer. Actor resolves the two
// independent signals (customer session, employee flag) into one variant;
// Employee exposes the raw flag so dashboards can tolerate both being set.
type Viewer struct {
	Actor    Actor
	Employee bool
	Loading  bool
}
