package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"billplan/db/db"
	"billplan/libs/diff"
	"billplan/mq/mq"
	"billplan/sched"
)

const dateLayout = "2006-01-02"

type planHandler struct {
	store  db.PlanDBWrapper
	queues mq.PlanMessageQueueWrapper

	// one mutex per plan so concurrent mutations never interleave recomputes
	recomputeLocks sync.Map // uuid.UUID -> *sync.Mutex
}

func newPlanHandler(store db.PlanDBWrapper, queues mq.PlanMessageQueueWrapper) *planHandler {
	return &planHandler{store: store, queues: queues}
}

func (h *planHandler) planLock(planID uuid.UUID) *sync.Mutex {
	lock, _ := h.recomputeLocks.LoadOrStore(planID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// statusFor maps store errors onto HTTP statuses. The store reports failures
// as messages, not sentinels, so this matches the phrasing it uses.
func statusFor(err error) int {
	msg := err.Error()
	switch {
	case errors.Is(err, sched.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case strings.Contains(msg, "not found"), strings.Contains(msg, "no payments"), strings.Contains(msg, "no income"):
		return http.StatusNotFound
	case strings.Contains(msg, "already exists"), strings.Contains(msg, "out of range"):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func abortBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abortBadRequest(c, err)
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Day(t), nil
}

// --- request / response shapes; money crosses the API as dollars ---

type planRequest struct {
	Name  string `json:"name" binding:"required"`
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

type rangeRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

type planResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Start string    `json:"start"`
	End   string    `json:"end"`
}

func toPlanResponse(info *db.PlanInfo) planResponse {
	return planResponse{
		ID:    info.ID,
		Name:  info.Name,
		Start: info.Start.Format(dateLayout),
		End:   info.End.Format(dateLayout),
	}
}

type billRequest struct {
	Name     string  `json:"name" binding:"required"`
	Total    float64 `json:"total" binding:"required"`
	Due      string  `json:"due" binding:"required"`
	Priority int     `json:"priority"`
}

type billResponse struct {
	ID       uuid.UUID `json:"id"`
	PlanID   uuid.UUID `json:"planId"`
	Name     string    `json:"name"`
	Total    float64   `json:"total"`
	Due      string    `json:"due"`
	Priority int       `json:"priority"`
}

func toBillResponse(info *db.BillInfo) billResponse {
	return billResponse{
		ID:       info.ID,
		PlanID:   info.PlanID,
		Name:     info.Name,
		Total:    info.Total.Dollars(),
		Due:      info.Due.Format(dateLayout),
		Priority: info.Priority,
	}
}

type paymentRequest struct {
	Date   string  `json:"date" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
	Note   string  `json:"note"`
}

type incomeRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

type allocationResponse struct {
	Bill   string  `json:"bill"`
	Amount float64 `json:"amount"`
}

type scheduleDayResponse struct {
	Date        string               `json:"date"`
	Allocations []allocationResponse `json:"allocations"`
	Total       float64              `json:"total"`
}

type scheduleResponse struct {
	PlanID         uuid.UUID             `json:"planId"`
	Days           []scheduleDayResponse `json:"days"`
	TotalScheduled float64               `json:"totalScheduled"`
}

func toScheduleResponse(planID uuid.UUID, plan *sched.Plan) scheduleResponse {
	resp := scheduleResponse{
		PlanID:         planID,
		Days:           make([]scheduleDayResponse, 0, len(plan.Schedule)),
		TotalScheduled: plan.TotalScheduled().Dollars(),
	}
	for _, day := range plan.Days() {
		allocs := plan.Schedule[day]
		dayResp := scheduleDayResponse{
			Date:        day.Format(dateLayout),
			Allocations: make([]allocationResponse, 0, len(allocs)),
		}
		var total sched.Cents
		for _, a := range allocs {
			dayResp.Allocations = append(dayResp.Allocations, allocationResponse{
				Bill:   a.Bill,
				Amount: a.Amount.Dollars(),
			})
			total += a.Amount
		}
		dayResp.Total = total.Dollars()
		resp.Days = append(resp.Days, dayResp)
	}
	return resp
}

// recompute rebuilds a plan's schedule from the store, serialized per plan,
// and announces the result on the schedule queue.
func (h *planHandler) recompute(planID uuid.UUID) (*sched.Plan, error) {
	lock := h.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	bills, plan, err := db.LoadEngineInput(h.store, planID)
	if err != nil {
		return nil, err
	}
	if err := sched.Recompute(bills, plan); err != nil {
		return nil, err
	}

	h.publishSchedule(mq.ScheduleMessage{
		PlanID:         planID,
		Days:           len(plan.Days()),
		TotalScheduled: plan.TotalScheduled(),
	})
	return plan, nil
}

func (h *planHandler) publishBill(action mq.Action, info *db.BillInfo) {
	queue := h.queues.GetBillMessageQueue(action)
	if queue == nil {
		return
	}
	err := queue.Publish(mq.BillMessage{
		PlanID:   info.PlanID,
		BillID:   info.ID,
		Name:     info.Name,
		Total:    info.Total,
		Due:      info.Due,
		Priority: info.Priority,
	})
	if err != nil {
		slog.Warn("failed to publish bill event", "action", action, "bill", info.ID, "error", err)
	}
}

func (h *planHandler) publishSchedule(msg mq.ScheduleMessage) {
	queue := h.queues.GetScheduleMessageQueue(mq.ActionRecompute)
	if queue == nil {
		return
	}
	if err := queue.Publish(msg); err != nil {
		slog.Warn("failed to publish schedule event", "plan", msg.PlanID, "error", err)
	}
}

// --- plan handlers ---

func (h *planHandler) createPlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	start, err := parseDate(req.Start)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	end, err := parseDate(req.End)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	info := &db.PlanInfo{ID: uuid.New(), Name: req.Name, Start: start, End: end}
	if err := h.store.CreatePlan(info); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPlanResponse(info))
}

func (h *planHandler) getPlan(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	info, err := h.store.GetPlanInfo(planID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(info))
}

func (h *planHandler) updatePlanRange(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	start, err := parseDate(req.Start)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	end, err := parseDate(req.End)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := h.store.UpdatePlanRange(planID, start, end); err != nil {
		abortWithError(c, err)
		return
	}
	if _, err := h.recompute(planID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *planHandler) deletePlan(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeletePlan(planID); err != nil {
		abortWithError(c, err)
		return
	}
	h.recomputeLocks.Delete(planID)
	c.Status(http.StatusNoContent)
}

// --- bill handlers ---

func (h *planHandler) createBill(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req billRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	due, err := parseDate(req.Due)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	info := &db.BillInfo{
		ID:       uuid.New(),
		PlanID:   planID,
		Name:     req.Name,
		Total:    sched.CentsFromDollars(req.Total),
		Due:      due,
		Priority: req.Priority,
	}
	if err := h.store.CreateBill(info); err != nil {
		abortWithError(c, err)
		return
	}

	h.publishBill(mq.ActionCreate, info)
	if _, err := h.recompute(planID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBillResponse(info))
}

func (h *planHandler) listBills(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	bills, err := h.store.GetPlanBills(planID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	resp := make([]billResponse, 0, len(bills))
	for i := range bills {
		resp = append(resp, toBillResponse(&bills[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *planHandler) updateBill(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	billID, ok := parseUUIDParam(c, "billId")
	if !ok {
		return
	}
	var req billRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	due, err := parseDate(req.Due)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	existing, err := h.store.GetBill(billID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	updated := *existing
	updated.Name = req.Name
	updated.Total = sched.CentsFromDollars(req.Total)
	updated.Due = due
	updated.Priority = req.Priority

	changed, err := diff.Changed(*existing, updated)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !changed {
		// no-op update: nothing to store, publish or recompute
		c.JSON(http.StatusOK, toBillResponse(existing))
		return
	}

	if err := h.store.UpdateBill(&updated); err != nil {
		abortWithError(c, err)
		return
	}

	h.publishBill(mq.ActionUpdate, &updated)
	if _, err := h.recompute(planID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBillResponse(&updated))
}

func (h *planHandler) deleteBill(c *gin.Context) {
	_, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	billID, ok := parseUUIDParam(c, "billId")
	if !ok {
		return
	}

	info, err := h.store.GetBill(billID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	planID, err := h.store.DeleteBill(billID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.publishBill(mq.ActionDelete, info)
	if _, err := h.recompute(planID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- payment handlers ---

func (h *planHandler) appendPayment(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	billID, ok := parseUUIDParam(c, "billId")
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	when, err := parseDate(req.Date)
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	if req.Amount < 0 {
		abortBadRequest(c, errors.New("payment amount must not be negative"))
		return
	}

	payment := db.PaymentInfo{
		When:   when,
		Amount: sched.CentsFromDollars(req.Amount),
		Note:   req.Note,
	}
	if err := h.store.AppendPayment(billID, payment); err != nil {
		abortWithError(c, err)
		return
	}
	if _, err := h.recompute(planID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// removePayment handles both DELETE .../payments/last (revert the newest
// payment) and DELETE .../payments/:index (remove one by position).
func (h *planHandler) removePayment(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	billID, ok := parseUUIDParam(c, "billId")
	if !ok {
		return
	}

	if c.Param("index") == "last" {
		reverted, err := h.store.RevertLastPayment(billID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if _, err := h.recompute(planID); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"date":   reverted.When.Format(dateLayout),
			"amount": reverted.Amount.Dollars(),
			"note":   reverted.Note,
		})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	if err := h.store.RemovePayment(billID, index); err != nil {
		abortWithError(c, err)
		return
	}
	if _, err := h.recompute(planID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- income handlers ---

func (h *planHandler) setIncome(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	day, err := parseDate(c.Param("date"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	var req incomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	if req.Amount < 0 {
		abortBadRequest(c, errors.New("income amount must not be negative"))
		return
	}

	entry := db.IncomeEntry{Day: day, Amount: sched.CentsFromDollars(req.Amount)}
	if err := h.store.SetIncome(planID, entry); err != nil {
		abortWithError(c, err)
		return
	}
	if _, err := h.recompute(planID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *planHandler) removeIncome(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	day, err := parseDate(c.Param("date"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	if err := h.store.RemoveIncome(planID, day); err != nil {
		abortWithError(c, err)
		return
	}
	if _, err := h.recompute(planID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- schedule handlers ---

func (h *planHandler) getSchedule(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	plan, err := h.recompute(planID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleResponse(planID, plan))
}

type scheduleEvent struct {
	PlanID         uuid.UUID `json:"planId"`
	Days           int       `json:"days"`
	TotalScheduled float64   `json:"totalScheduled"`
}

// streamScheduleEvents pushes recompute announcements for one plan to the
// client as server-sent events until the client disconnects.
func (h *planHandler) streamScheduleEvents(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	queue := h.queues.GetScheduleMessageQueue(mq.ActionRecompute)
	if queue == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "schedule events unavailable"})
		return
	}

	events := make(chan scheduleEvent)
	mq.SubscribeProcessor(planID, c.Request.Context(), queue,
		func(msg mq.ScheduleMessage) (scheduleEvent, bool, error) {
			return scheduleEvent{
				PlanID:         msg.PlanID,
				Days:           msg.Days,
				TotalScheduled: msg.TotalScheduled.Dollars(),
			}, false, nil
		}, events)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// the request context ends when the client goes away
	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			c.SSEvent("schedule", ev)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *planHandler) recomputePlan(c *gin.Context) {
	planID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	plan, err := h.recompute(planID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"planId":         planID,
		"days":           len(plan.Days()),
		"totalScheduled": plan.TotalScheduled().Dollars(),
	})
}
