package separation

import (
	"testing"

	"github.com/farxc/separacao-pedidos/internal/quantity"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		old      int64
		sheet    int64
		inSheet  bool
		want     int64
		wantKind ChangeKind
	}{
		{"create positive", ModeCreate, 0, 4, true, 4, ChangeAdded},
		{"create zero", ModeCreate, 0, 0, true, 0, ChangeNone},

		{"reinforce 0+0", ModeReinforcement, 0, 0, true, 0, ChangeNone},
		{"reinforce 0+n", ModeReinforcement, 0, 4, true, 4, ChangeAdded},
		{"reinforce old+new", ModeReinforcement, 3, 3, true, 6, ChangeIncreased},
		{"reinforce declared zero keeps old", ModeReinforcement, 5, 0, true, 5, ChangeNone},
		{"reinforce omitted store is cut", ModeReinforcement, 5, 0, false, 0, ChangeRedistributed},
		{"reinforce omitted empty store", ModeReinforcement, 0, 0, false, 0, ChangeNone},
		{"reinforce sum saturates", ModeReinforcement, quantity.Max - 1, 5, true, quantity.Max, ChangeIncreased},

		{"redistribute overwrite", ModeRedistribution, 5, 2, true, 2, ChangeRedistributed},
		{"redistribute same", ModeRedistribution, 2, 2, true, 2, ChangeNone},
		{"redistribute to zero", ModeRedistribution, 2, 0, true, 0, ChangeRedistributed},
		{"redistribute omitted", ModeRedistribution, 2, 9, false, 0, ChangeRedistributed},
		{"redistribute new", ModeRedistribution, 0, 7, true, 7, ChangeRedistributed},

		{"melancia set", ModeMelanciaOverride, 10, 4, true, 4, ChangeOverridden},
		{"melancia same", ModeMelanciaOverride, 4, 4, true, 4, ChangeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind := merge(tt.mode, tt.old, tt.sheet, tt.inSheet)
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
			if kind != tt.wantKind {
				t.Errorf("Expected kind %q, got %q", tt.wantKind, kind)
			}
		})
	}
}
