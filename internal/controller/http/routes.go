package http

import (
	"github.com/go-chi/chi/v5"
)

// RegisterMessagingRoutes wires the /messages/threads subtree. The
// nesting is registered in one place so every level of the path owns
// exactly one subrouter.
func RegisterMessagingRoutes(r chi.Router, threads *ThreadHandler, convs *ConversationHandler, msgs *MessageHandler) {
	r.Route("/messages/threads", func(r chi.Router) {
		// List caller's threads, refreshed from the campaign source
		r.Get("/", threads.ListThreads())

		// Create a thread for a campaign explicitly
		r.Post("/", threads.CreateThread())

		r.Route("/{threadId}", func(r chi.Router) {
			// Get one thread with the caller's conversations
			r.Get("/", threads.GetThread())

			r.Route("/conversations", func(r chi.Router) {
				// List caller's conversations under a thread
				r.Get("/", convs.ListConversations())

				// Open a conversation under a thread
				r.Post("/", convs.CreateConversation())

				r.Route("/{conversationId}", func(r chi.Router) {
					// Fill the empty participant slot
					r.Post("/join", convs.JoinConversation())

					// List messages, deleted ones redacted
					r.Get("/", msgs.ListMessages())

					// Append a message
					r.Post("/", msgs.AppendMessage())

					// Reset the caller's unread counter
					r.Put("/", msgs.MarkRead())

					// Get one message
					r.Get("/messages/{messageId}", msgs.GetMessage())

					// Soft-delete a message
					r.Delete("/messages/{messageId}", msgs.DeleteMessage())
				})
			})
		})
	})
}
