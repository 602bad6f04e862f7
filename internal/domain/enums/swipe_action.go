package enums

type SwipeAction string

const (
	SwipeActionLike    SwipeAction = "LIKE"
	SwipeActionDislike SwipeAction = "DISLIKE"
)
