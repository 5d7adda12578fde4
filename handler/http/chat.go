package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatdocs/src/core/chain"
	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/log"
)

type chatRequest struct {
	botConfigRequest
	Question  string     `json:"question" binding:"required"`
	History   []rag.Turn `json:"history"`
	Namespace string     `json:"namespace" binding:"required"`
	Stream    bool       `json:"stream"`
}

// Chat godoc
// @Summary Answer a question over a trained namespace
// @Tags chat
// @Accept json
// @Produce json
// @Param body body chatRequest true "Chat parameters"
// @Success 200 {object} chain.Result
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /chat [post]
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	cfg, err := h.resolveBotConfig(c, req.botConfigRequest)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	provider, err := h.factory.Provider(cfg)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	ch := chain.New(provider, provider, h.store, h.chainOpts...)
	in := chain.Input{
		Question:       req.Question,
		History:        req.History,
		Namespace:      req.Namespace,
		PromptTemplate: cfg.PromptTemplate,
	}

	if !req.Stream {
		result, err := ch.Run(c.Request.Context(), in)
		if err != nil {
			sendError(c, http.StatusInternalServerError, err)
			return
		}
		sendJSON(c, http.StatusOK, result)
		return
	}

	stream, err := ch.RunStream(c.Request.Context(), in)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	defer stream.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Headers are already on the wire; all we can do is log
			// and stop without the done sentinel so the client knows
			// the answer is incomplete.
			log.Error(err, "token stream aborted", "namespace", req.Namespace)
			return
		}

		if err := writeSSEToken(c.Writer, token); err != nil {
			log.Error(err, "client dropped mid-stream", "namespace", req.Namespace)
			return
		}
		c.Writer.Flush()
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}

func writeSSEToken(w io.Writer, token string) error {
	frame, err := json.Marshal(gin.H{"data": token})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", frame)
	return err
}
