package errors

var (
	// Domain errors for the connection request lifecycle and social graph
	ErrSelfConnection    = InvalidArg("cannot send a connection request to yourself")
	ErrDuplicatePending  = AlreadyExists("a pending connection request already exists between these users")
	ErrAlreadyConnected  = AlreadyExists("users are already connected")
	ErrRequestNotFound   = NotFound("connection request not found")
	ErrEdgeNotFound      = NotFound("connection not found")
	ErrRequestNotPending = FailedPrecondition("connection request is no longer pending")
	ErrNotRecipient      = Forbidden("only the recipient may respond to a connection request")
	ErrNotRequester      = Forbidden("only the requester may cancel a connection request")
	ErrNotParticipant    = Forbidden("only a member of the connection may remove it")
	ErrUserNotFound      = NotFound("user not found")
)

func ErrStorageFailed(cause error) error {
	return Wrap(CodeInternal, "storage operation failed", cause)
}
