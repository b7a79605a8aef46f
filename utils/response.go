package utils

import "github.com/gin-gonic/gin"

// MessageResponse is the body of informational and error replies.
type MessageResponse struct {
	Message string `json:"message"`
}

// PageResponse is the envelope of paginated listings.
type PageResponse struct {
	Data          interface{} `json:"data"`
	CurrentPage   int         `json:"currentPage"`
	NumberOfPages int         `json:"numberOfPages"`
}

// Message writes {"message": msg} with the given status code.
func Message(ctx *gin.Context, status int, msg string) {
	ctx.JSON(status, MessageResponse{Message: msg})
}

// Page writes a paginated listing.
func Page(ctx *gin.Context, data interface{}, currentPage, numberOfPages int) {
	ctx.JSON(200, PageResponse{Data: data, CurrentPage: currentPage, NumberOfPages: numberOfPages})
}

// Success writes data as-is with status 200.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, data)
}
