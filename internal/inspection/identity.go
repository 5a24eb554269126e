package inspection

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/models"
)

// Identity is the authenticated caller, passed explicitly to every
// operation that needs one.
type Identity struct {
	UserID primitive.ObjectID
	Role   string
}

// Anonymous is the caller on public routes.
var Anonymous = Identity{}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

func (i Identity) IsAuthenticated() bool { return !i.UserID.IsZero() }

// CanAuthor reports whether the role may create or edit reports at all.
func (i Identity) CanAuthor() bool {
	return i.IsAuthenticated() && (i.Role == models.RoleAdmin || i.Role == models.RoleInspector)
}

// canEdit is the single ownership rule shared by reports and their parts.
func canEdit(r *models.InspectionReport, who Identity) error {
	if !who.CanAuthor() {
		return forbidden("role may not modify inspection reports")
	}
	if who.IsAdmin() || r.Inspector == who.UserID {
		return nil
	}
	return forbidden("only the report's inspector or an admin may modify it")
}

func canRead(r *models.InspectionReport, who Identity) bool {
	if r.IsPublished {
		return true
	}
	return who.IsAuthenticated() && (who.IsAdmin() || r.Inspector == who.UserID)
}
