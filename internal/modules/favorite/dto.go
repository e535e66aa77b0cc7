package favorite

const (
	ActionFavorite   = "favorite"
	ActionUnfavorite = "unfavorite"
)

// ActionQuery is the query string of POST /favorites.
type ActionQuery struct {
	ID     int64  `form:"id" binding:"required,gt=0"`
	Action string `form:"action" binding:"required,oneof=favorite unfavorite"`
}
