package game

import "testing"

type stubEngine struct{}

func (stubEngine) Init(seats []Seat, seed int64) (State, error) { return nil, nil }
func (stubEngine) ApplyAction(s State, uid string, side Side, command string, args map[string]any) error {
	return nil
}
func (stubEngine) ApplyNotification(s State, text string) error         { return nil }
func (stubEngine) ApplyConcession(s State, uid string, side Side) error { return nil }
func (stubEngine) ApplyRejoin(s State, uid string, side Side) error     { return nil }

func TestRegistry(t *testing.T) {
	Register("stub", func() Engine { return stubEngine{} })

	e, err := New("stub")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if _, ok := e.(stubEngine); !ok {
		t.Fatalf("New() returned %T", e)
	}

	if _, err := New("nope"); err == nil {
		t.Error("New() of an unregistered id succeeded")
	}

	found := false
	for _, id := range List() {
		if id == "stub" {
			found = true
		}
	}
	if !found {
		t.Errorf("List() = %v, missing stub", List())
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("dup", func() Engine { return stubEngine{} })
	defer func() {
		if recover() == nil {
			t.Error("Duplicate Register() did not panic")
		}
	}()
	Register("dup", func() Engine { return stubEngine{} })
}
