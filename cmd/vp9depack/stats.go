package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/opd-ai/vp9depack/rtp"
	"github.com/sirupsen/logrus"
)

// streamLister is the read side of the demuxer served over HTTP.
type streamLister interface {
	Streams() []rtp.StreamInfo
	Stream(ssrc uint32) (rtp.StreamInfo, bool)
}

// newStatsRouter serves:
//
//	GET /health          liveness
//	GET /streams         every stream, ordered by index
//	GET /streams/{ssrc}  one stream, 404 when unknown
func newStatsRouter(streams streamLister) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/streams", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, streams.Streams())
	}).Methods(http.MethodGet)

	r.HandleFunc("/streams/{ssrc:[0-9]+}", func(w http.ResponseWriter, req *http.Request) {
		ssrc, err := strconv.ParseUint(mux.Vars(req)["ssrc"], 10, 32)
		if err != nil {
			http.Error(w, "invalid ssrc", http.StatusBadRequest)
			return
		}
		info, ok := streams.Stream(uint32(ssrc))
		if !ok {
			http.Error(w, "stream not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "writeJSON",
			"error":    err.Error(),
		}).Warn("Failed to encode stats response")
	}
}
