package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"presensi/internal/attendance"
	"presensi/internal/forum"
	"presensi/internal/metrics"
	"presensi/internal/poller"
	"presensi/internal/store"
)

const (
	keepAliveInterval = 25 * time.Second

	summaryTTL     = time.Minute
	summaryCleanup = 5 * time.Minute
)

// Snapshots is the part of the poller the API reads from.
type Snapshots interface {
	Snapshot() (poller.Snapshot, bool)
	Load(ctx context.Context) (poller.Snapshot, error)
}

// Handler serves the dashboard endpoints.
type Handler struct {
	snapshots Snapshots
	forum     *forum.Service
	hub       *Hub
	kv        store.KV
	metrics   *metrics.Metrics
	policy    attendance.Policy
	loc       *time.Location
	log       *logrus.Entry
	now       func() time.Time
	summaries *cache.Cache
}

// RegisterRoutes mounts the dashboard endpoints on r.
func RegisterRoutes(r gin.IRoutes, h *Handler) {
	r.GET("/attendance", h.Attendance)
	r.GET("/recap", h.Recap)
	r.GET("/history", h.History)
	r.GET("/departments", h.Departments)
	r.POST("/refresh", h.Refresh)
	r.GET("/stream", h.Stream)

	r.GET("/forum/posts", h.ListPosts)
	r.POST("/forum/posts", h.CreatePost)
	r.GET("/forum/posts/:id", h.GetPost)
	r.POST("/forum/posts/:id/replies", h.ReplyPost)
	r.POST("/forum/posts/:id/like", h.LikePost)
}

// Health reports snapshot and store state.
func (h *Handler) Health(c *gin.Context) {
	storeHealthy := h.kv == nil || h.kv.Healthy(c.Request.Context())
	body := gin.H{"status": "ok", "store": storeHealthy}
	if snap, ok := h.snapshots.Snapshot(); ok {
		info := gin.H{"source": snap.Source, "events": len(snap.Events)}
		if !snap.FetchedAt.IsZero() {
			info["age_seconds"] = int(h.now().Sub(snap.FetchedAt).Seconds())
		}
		body["snapshot"] = info
	} else {
		body["snapshot"] = nil
	}
	status := http.StatusOK
	if !storeHealthy {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// Attendance returns reconciled records newest first with statistics.
func (h *Handler) Attendance(c *gin.Context) {
	snap, criteria, ok := h.prepare(c)
	if !ok {
		return
	}
	sum := h.summarize(snap, criteria)
	resp := attendanceResponse{
		snapshotMeta:  metaOf(snap),
		Criteria:      criteriaOf(criteria),
		Stats:         countsOf(sum.Stats.Counts),
		PerDepartment: make(map[string]countsDTO, len(sum.Stats.PerDepartment)),
		Records:       make([]recordDTO, 0, len(sum.Records)),
	}
	for d, counts := range sum.Stats.PerDepartment {
		resp.PerDepartment[d] = countsOf(counts)
	}
	for _, r := range attendance.SortNewestFirst(sum.Records) {
		resp.Records = append(resp.Records, recordOf(r, h.policy))
	}
	c.JSON(http.StatusOK, resp)
}

// Recap returns the daily recap: active departments and records in arrival
// order.
func (h *Handler) Recap(c *gin.Context) {
	snap, criteria, ok := h.prepare(c)
	if !ok {
		return
	}
	sum := h.summarize(snap, criteria)
	resp := recapResponse{
		snapshotMeta: metaOf(snap),
		Criteria:     criteriaOf(criteria),
		Stats:        countsOf(sum.Stats.Counts),
		Departments:  []departmentCountsDTO{},
		Records:      make([]recordDTO, 0, len(sum.Records)),
	}
	for _, d := range sum.Stats.ActiveDepartments() {
		resp.Departments = append(resp.Departments, departmentCountsDTO{
			Department: d,
			Stats:      countsOf(sum.Stats.PerDepartment[d]),
		})
	}
	for _, r := range attendance.SortOldestFirst(sum.Records) {
		resp.Records = append(resp.Records, recordOf(r, h.policy))
	}
	c.JSON(http.StatusOK, resp)
}

// History returns every scan, newest first. limit caps the entries.
func (h *Handler) History(c *gin.Context) {
	snap, ok := h.current(c)
	if !ok {
		return
	}
	entries := attendance.History(snap.Events, h.policy)
	total := len(entries)
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		if n < len(entries) {
			entries = entries[:n]
		}
	}
	resp := historyResponse{
		snapshotMeta: metaOf(snap),
		Total:        total,
		Entries:      make([]recordDTO, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, historyOf(e))
	}
	c.JSON(http.StatusOK, resp)
}

// Departments lists the catalog plus departments seen in the snapshot.
func (h *Handler) Departments(c *gin.Context) {
	var events []attendance.Event
	if snap, ok := h.snapshots.Snapshot(); ok {
		events = snap.Events
	}
	c.JSON(http.StatusOK, gin.H{"departments": attendance.Departments(events)})
}

// Refresh forces a fetch of the feed.
func (h *Handler) Refresh(c *gin.Context) {
	snap, err := h.snapshots.Load(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source":      snap.Source,
		"fingerprint": snap.Fingerprint,
		"events":      len(snap.Events),
		"fetch_error": snap.FetchError,
	})
}

// Stream pushes a "snapshot" server-sent event on every change.
func (h *Handler) Stream(c *gin.Context) {
	changes, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream;charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if snap, ok := h.snapshots.Snapshot(); ok {
		c.SSEvent("snapshot", poller.Change{
			Fingerprint: snap.Fingerprint,
			Count:       len(snap.Events),
			FetchedAt:   snap.FetchedAt,
		})
	}
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			c.SSEvent("snapshot", change)
		case <-keepAlive.C:
			c.SSEvent("ping", h.now().Unix())
		}
		c.Writer.Flush()
	}
}

// summarize memoizes the pipeline per snapshot version and criteria.
func (h *Handler) summarize(snap poller.Snapshot, criteria attendance.Criteria) attendance.Summary {
	key := fmt.Sprintf("%s|%d|%s|%s|%s", snap.Fingerprint, snap.FetchedAt.UnixNano(),
		criteria.Department, attendance.NormalizeCohort(criteria.Cohort), criteria.Date)
	if v, ok := h.summaries.Get(key); ok {
		return v.(attendance.Summary)
	}
	sum := attendance.Summarize(snap.Events, criteria, h.policy)
	h.summaries.SetDefault(key, sum)
	return sum
}

// current returns the snapshot or answers 503.
func (h *Handler) current(c *gin.Context) (poller.Snapshot, bool) {
	snap, ok := h.snapshots.Snapshot()
	if !ok {
		h.fail(c, poller.ErrNoSnapshot)
		return poller.Snapshot{}, false
	}
	return snap, true
}

func (h *Handler) prepare(c *gin.Context) (poller.Snapshot, attendance.Criteria, bool) {
	criteria, err := h.criteria(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return poller.Snapshot{}, attendance.Criteria{}, false
	}
	snap, ok := h.current(c)
	return snap, criteria, ok
}

// criteria reads department, cohort and date. A missing date means today
// and "all" lifts the date restriction.
func (h *Handler) criteria(c *gin.Context) (attendance.Criteria, error) {
	out := attendance.Criteria{
		Department: c.DefaultQuery("department", attendance.AllDepartments),
		Cohort:     c.DefaultQuery("cohort", attendance.AllCohorts),
	}
	switch date := c.Query("date"); date {
	case "":
		out.Date = h.now().In(h.loc).Format(time.DateOnly)
	case "all":
		out.Date = attendance.AnyDate
	default:
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return attendance.Criteria{}, errors.New("date must be YYYY-MM-DD or all")
		}
		out.Date = date
	}
	return out, nil
}

func criteriaOf(c attendance.Criteria) criteriaDTO {
	date := c.Date
	if date == attendance.AnyDate {
		date = "all"
	}
	return criteriaDTO{Department: c.Department, Cohort: c.Cohort, Date: date}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, forum.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, forum.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, poller.ErrNoSnapshot):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(status, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}
