package checkout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
)

func groupRecords(expected *time.Time, quantities, returned []int) []models.CheckoutRecord {
	records := make([]models.CheckoutRecord, len(quantities))
	for i := range quantities {
		status := enums.CheckoutStatusCheckedOut
		if returned[i] >= quantities[i] {
			status = enums.CheckoutStatusReturned
		} else if returned[i] > 0 {
			status = enums.CheckoutStatusPartialReturn
		}
		records[i] = models.CheckoutRecord{
			ID:                 uuid.New(),
			MasterBarcode:      "CHK-test",
			ItemID:             uuid.New(),
			Quantity:           quantities[i],
			ReturnedQuantity:   returned[i],
			Status:             status,
			CheckoutDate:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			ExpectedReturnDate: expected,
		}
	}
	return records
}

func TestBuildGroupViewStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)

	tests := []struct {
		name       string
		expected   *time.Time
		quantities []int
		returned   []int
		status     GroupStatus
		remaining  int
	}{
		{
			name:       "nothing returned",
			expected:   &future,
			quantities: []int{2, 3},
			returned:   []int{0, 0},
			status:     GroupStatusActive,
			remaining:  5,
		},
		{
			name:       "some returned",
			expected:   &future,
			quantities: []int{2, 3},
			returned:   []int{2, 0},
			status:     GroupStatusPartialReturn,
			remaining:  3,
		},
		{
			name:       "everything back",
			expected:   &past,
			quantities: []int{2, 3},
			returned:   []int{2, 3},
			status:     GroupStatusFullyReturned,
			remaining:  0,
		},
		{
			name:       "past due wins over partial",
			expected:   &past,
			quantities: []int{2, 3},
			returned:   []int{2, 0},
			status:     GroupStatusOverdue,
			remaining:  3,
		},
		{
			name:       "no expected date never goes overdue",
			expected:   nil,
			quantities: []int{4},
			returned:   []int{0},
			status:     GroupStatusActive,
			remaining:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			view := BuildGroupView(groupRecords(tt.expected, tt.quantities, tt.returned), now)
			assert.Equal(t, tt.status, view.Status)
			assert.Equal(t, tt.remaining, view.RemainingItems)
			assert.Equal(t, "CHK-test", view.MasterBarcode)
		})
	}
}
