package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"costportal/internal/filter"
	"costportal/internal/model"
)

// --- Fakes ---

type fakeRequestRepo struct {
	records map[uuid.UUID]*model.CostRequest
	order   []uuid.UUID
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{records: make(map[uuid.UUID]*model.CostRequest)}
}

func (f *fakeRequestRepo) Create(_ context.Context, req *model.CostRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	clone := *req
	f.records[req.ID] = &clone
	f.order = append(f.order, req.ID)
	return nil
}

func (f *fakeRequestRepo) CreateBatch(ctx context.Context, reqs []model.CostRequest) error {
	for i := range reqs {
		if err := f.Create(ctx, &reqs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CostRequest, error) {
	if r, ok := f.records[id]; ok {
		clone := *r
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRequestRepo) ListAll(_ context.Context) ([]model.CostRequest, error) {
	out := make([]model.CostRequest, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		if r, ok := f.records[f.order[i]]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) Update(_ context.Context, req *model.CostRequest) error {
	clone := *req
	f.records[req.ID] = &clone
	return nil
}

func (f *fakeRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.records, id)
	return nil
}

func (f *fakeRequestRepo) FindDuplicate(_ context.Context, invoiceNumber, branchUF string, excludeID uuid.UUID) (*model.CostRequest, error) {
	for _, r := range f.records {
		if r.ID == excludeID {
			continue
		}
		if r.InvoiceNumber == invoiceNumber && r.BranchUF == branchUF {
			clone := *r
			return &clone, nil
		}
	}
	return nil, nil
}

type fakeUserRepo struct {
	notifiable []model.User
}

func (f *fakeUserRepo) Create(context.Context, *model.User) error { return nil }
func (f *fakeUserRepo) GetByID(context.Context, string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepo) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepo) List(context.Context) ([]model.User, error) { return nil, nil }
func (f *fakeUserRepo) ListNotifiable(context.Context) ([]model.User, error) {
	return f.notifiable, nil
}
func (f *fakeUserRepo) Update(context.Context, *model.User) error { return nil }
func (f *fakeUserRepo) Delete(context.Context, string) error      { return nil }

type fakeBranchRepo struct {
	branches map[string]model.Branch
}

func (f *fakeBranchRepo) Upsert(context.Context, *model.Branch) error { return nil }
func (f *fakeBranchRepo) List(context.Context) ([]model.Branch, error) {
	return nil, nil
}
func (f *fakeBranchRepo) GetByUF(_ context.Context, uf string) (*model.Branch, error) {
	if b, ok := f.branches[uf]; ok {
		return &b, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeBranchRepo) Delete(context.Context, string) error { return nil }

type fakeReasonRepo struct {
	reasons map[string]model.Reason
}

func (f *fakeReasonRepo) Upsert(context.Context, *model.Reason) error { return nil }
func (f *fakeReasonRepo) List(context.Context) ([]model.Reason, error) {
	return nil, nil
}
func (f *fakeReasonRepo) GetByKey(_ context.Context, key string) (*model.Reason, error) {
	if r, ok := f.reasons[key]; ok {
		return &r, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeReasonRepo) Delete(context.Context, string) error { return nil }

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fakeNotifier struct {
	staffCalls    []model.CostRequest
	decisionCalls []model.CostRequest
	sendResult    bool
}

func (f *fakeNotifier) StaffAlert(_ context.Context, req model.CostRequest, _ []model.User) (bool, error) {
	f.staffCalls = append(f.staffCalls, req)
	return f.sendResult, nil
}

func (f *fakeNotifier) DecisionAlert(_ context.Context, req model.CostRequest, _ []model.User) (bool, error) {
	f.decisionCalls = append(f.decisionCalls, req)
	return f.sendResult, nil
}

type fakeBroadcaster struct {
	messages [][]byte
}

func (f *fakeBroadcaster) Broadcast(message []byte) {
	f.messages = append(f.messages, message)
}

func newTestService() (RequestService, *fakeRequestRepo, *fakeNotifier, *fakeBroadcaster) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{sendResult: true}
	hub := &fakeBroadcaster{}
	users := &fakeUserRepo{notifiable: []model.User{
		{Email: "aprov@corp.com", Branch: model.WildcardBranch, ReceivesNotifications: true},
	}}
	branches := &fakeBranchRepo{branches: map[string]model.Branch{
		"SP": {UF: "SP", Name: "Matriz SP", CNPJ: "11.222.333/0001-44"},
	}}
	reasons := &fakeReasonRepo{reasons: map[string]model.Reason{
		"REENTREGA": {Key: "REENTREGA", Name: "Reentrega", Department: "Logística", CostCenter: "CC-101"},
	}}
	svc := NewRequestService(repo, users, branches, reasons, fakeTxManager{}, notifier, hub)
	return svc, repo, notifier, hub
}

var master = Actor{Name: "Bruno", Role: model.RoleMaster, Branch: model.WildcardBranch}
var spApprover = Actor{Name: "Carla", Role: model.RoleApprover, Branch: "SP"}

func validDTO() RequestDTO {
	return RequestDTO{
		BranchUF:        "SP",
		CarrierName:     "Rapidão",
		InvoiceNumber:   "1001",
		Reason:          "REENTREGA",
		RequestedValue:  350,
		RequesterName:   "Ana",
		RequesterEmails: " Ana@corp.com , ana@corp.com",
	}
}

// --- Submit ---

func TestSubmitCreatesPendingAndNotifies(t *testing.T) {
	svc, repo, notifier, hub := newTestService()

	result, err := svc.Submit(context.Background(), validDTO(), false)

	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, result.Request.Status)
	assert.Equal(t, model.OriginPortal, result.Request.Origin)
	assert.InDelta(t, 350, result.Request.RequestedValue, 1e-9)
	assert.InDelta(t, 350, result.Request.ApprovedValue, 1e-9)
	assert.Zero(t, result.Request.Saving)
	assert.Equal(t, "ana@corp.com", result.Request.RequesterEmails)
	assert.True(t, result.Notified)
	assert.Len(t, repo.records, 1)
	assert.Len(t, notifier.staffCalls, 1)
	assert.NotEmpty(t, hub.messages)
}

func TestSubmitWithoutRequesterEmailRejected(t *testing.T) {
	svc, repo, notifier, _ := newTestService()

	dto := validDTO()
	dto.RequesterEmails = ""
	_, err := svc.Submit(context.Background(), dto, false)
	assert.ErrorIs(t, err, ErrMissingRequesterEmail)

	// whitespace and separators alone do not count as an address
	dto.RequesterEmails = " , ; "
	_, err = svc.Submit(context.Background(), dto, false)
	assert.ErrorIs(t, err, ErrMissingRequesterEmail)

	assert.Empty(t, repo.records)
	assert.Empty(t, notifier.staffCalls)
}

func TestSubmitNormalizesAndPrefillsFromCatalogs(t *testing.T) {
	svc, _, _, _ := newTestService()

	dto := validDTO()
	dto.CarrierName = " Rapidão "
	dto.DestinationCity = "campinas"
	dto.RequesterName = "ana silva"
	dto.BranchCNPJ = "00.000.000/0000-00"
	dto.Department = "Comercial"
	dto.CostCenter = "CC-999"

	result, err := svc.Submit(context.Background(), dto, false)

	require.NoError(t, err)
	assert.Equal(t, "RAPIDÃO", result.Request.CarrierName)
	assert.Equal(t, "CAMPINAS", result.Request.DestinationCity)
	assert.Equal(t, "ANA SILVA", result.Request.RequesterName)
	assert.Equal(t, "11.222.333/0001-44", result.Request.BranchCNPJ)
	assert.Equal(t, "Logística", result.Request.Department)
	assert.Equal(t, "CC-101", result.Request.CostCenter)
}

func TestSubmitUnknownCatalogEntriesKeepFormValues(t *testing.T) {
	svc, _, _, _ := newTestService()

	dto := validDTO()
	dto.BranchUF = "RJ"
	dto.BranchCNPJ = "55.666.777/0001-88"
	dto.Reason = "AVARIA"
	dto.Department = "Comercial"

	result, err := svc.Submit(context.Background(), dto, false)

	require.NoError(t, err)
	assert.Equal(t, "55.666.777/0001-88", result.Request.BranchCNPJ)
	assert.Equal(t, "Comercial", result.Request.Department)
}

func TestSubmitDuplicateRejectedUnlessForced(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Submit(context.Background(), validDTO(), false)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), validDTO(), false)
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.NotEqual(t, uuid.Nil, dup.ExistingID)

	_, err = svc.Submit(context.Background(), validDTO(), true)
	assert.NoError(t, err)
}

func TestSubmitSameInvoiceOtherBranchIsNotDuplicate(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Submit(context.Background(), validDTO(), false)
	require.NoError(t, err)

	other := validDTO()
	other.BranchUF = "RJ"
	_, err = svc.Submit(context.Background(), other, false)
	assert.NoError(t, err)
}

// --- Create ---

func TestCreateDecidedSetsSignatureAndNotifies(t *testing.T) {
	svc, _, notifier, _ := newTestService()

	dto := ManagedRequestDTO{RequestDTO: validDTO(), Status: model.StatusApproved, ApprovedValue: 300}
	result, err := svc.Create(context.Background(), dto, master, false)

	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, result.Request.Status)
	assert.Equal(t, model.OriginManual, result.Request.Origin)
	assert.Equal(t, "Aprovado por: Bruno", result.Request.ApproverSignature)
	assert.Equal(t, "Bruno", result.Request.AnalystName)
	assert.NotNil(t, result.Request.ApprovedAt)
	assert.InDelta(t, 50, result.Request.Saving, 1e-9)
	assert.Len(t, notifier.decisionCalls, 1)
	assert.Empty(t, notifier.staffCalls)
}

func TestCreatePendingNotifiesStaffInstead(t *testing.T) {
	svc, _, notifier, _ := newTestService()

	dto := ManagedRequestDTO{RequestDTO: validDTO()}
	result, err := svc.Create(context.Background(), dto, master, false)

	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, result.Request.Status)
	assert.Len(t, notifier.staffCalls, 1)
	assert.Empty(t, notifier.decisionCalls)
}

func TestCreateOutsideBranchScopeForbidden(t *testing.T) {
	svc, _, _, _ := newTestService()

	dto := ManagedRequestDTO{RequestDTO: validDTO()}
	dto.BranchUF = "RJ"

	_, err := svc.Create(context.Background(), dto, spApprover, false)
	assert.ErrorIs(t, err, ErrForbiddenBranch)
}

// --- Transition ---

func TestTransitionApproves(t *testing.T) {
	svc, _, notifier, _ := newTestService()

	created, err := svc.Submit(context.Background(), validDTO(), false)
	require.NoError(t, err)
	notifier.staffCalls = nil

	result, err := svc.Transition(context.Background(), created.Request.ID, TransitionDTO{
		Status:        model.StatusApproved,
		ApprovedValue: 280,
	}, spApprover)

	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, result.Request.Status)
	assert.Equal(t, "Aprovado por: Carla", result.Request.ApproverSignature)
	assert.Equal(t, "Carla", result.Request.AnalystName)
	assert.InDelta(t, 280, result.Request.ApprovedValue, 1e-9)
	assert.InDelta(t, 70, result.Request.Saving, 1e-9)
	assert.True(t, result.Notified)
	assert.Len(t, notifier.decisionCalls, 1)
}

func TestTransitionApproveDefaultsToRequestedValue(t *testing.T) {
	svc, _, _, _ := newTestService()

	created, err := svc.Submit(context.Background(), validDTO(), false)
	require.NoError(t, err)

	result, err := svc.Transition(context.Background(), created.Request.ID, TransitionDTO{
		Status: model.StatusApproved,
	}, master)

	require.NoError(t, err)
	assert.InDelta(t, 350, result.Request.ApprovedValue, 1e-9)
}

func TestTransitionRejectKeepsApprovedValue(t *testing.T) {
	svc, _, _, _ := newTestService()

	created, err := svc.Submit(context.Background(), validDTO(), false)
	require.NoError(t, err)

	result, err := svc.Transition(context.Background(), created.Request.ID, TransitionDTO{
		Status:        model.StatusRejected,
		ApprovedValue: 100,
	}, master)

	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, result.Request.Status)
	// a never-negotiated rejection reports no saving
	assert.InDelta(t, 350, result.Request.ApprovedValue, 1e-9)
	assert.Zero(t, result.Request.Saving)
	assert.Equal(t, "Reprovado por: Bruno", result.Request.ApproverSignature)
}

func TestTransitionAlreadyDecidedFails(t *testing.T) {
	svc, _, _, _ := newTestService()

	created, err := svc.Submit(context.Background(), validDTO(), false)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), created.Request.ID, TransitionDTO{Status: model.StatusApproved}, master)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), created.Request.ID, TransitionDTO{Status: model.StatusRejected}, master)
	assert.ErrorContains(t, err, "already")
}

func TestTransitionOutsideBranchScopeForbidden(t *testing.T) {
	svc, _, _, _ := newTestService()

	dto := validDTO()
	dto.BranchUF = "RJ"
	created, err := svc.Submit(context.Background(), dto, false)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), created.Request.ID, TransitionDTO{Status: model.StatusApproved}, spApprover)
	assert.ErrorIs(t, err, ErrForbiddenBranch)
}

// --- Update ---

func TestUpdateNotifiesOnlyWhenStatusActuallyChanges(t *testing.T) {
	svc, _, notifier, _ := newTestService()

	created, err := svc.Submit(context.Background(), validDTO(), false)
	require.NoError(t, err)
	notifier.staffCalls = nil

	dto := ManagedRequestDTO{RequestDTO: validDTO(), Status: model.StatusApproved, ApprovedValue: 300}
	result, err := svc.Update(context.Background(), created.Request.ID, dto, master, false)
	require.NoError(t, err)
	assert.True(t, result.Notified)
	assert.Len(t, notifier.decisionCalls, 1)

	// second edit keeps the decided status: no new alert
	dto.Note = "ajuste de valor"
	result, err = svc.Update(context.Background(), created.Request.ID, dto, master, false)
	require.NoError(t, err)
	assert.False(t, result.Notified)
	assert.Len(t, notifier.decisionCalls, 1)
}

func TestUpdateBackToPendingClearsDecision(t *testing.T) {
	svc, _, _, _ := newTestService()

	dto := ManagedRequestDTO{RequestDTO: validDTO(), Status: model.StatusApproved, ApprovedValue: 300}
	created, err := svc.Create(context.Background(), dto, master, false)
	require.NoError(t, err)

	dto.Status = model.StatusPending
	result, err := svc.Update(context.Background(), created.Request.ID, dto, master, false)

	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, result.Request.Status)
	assert.Nil(t, result.Request.ApprovedAt)
	assert.Empty(t, result.Request.ApproverSignature)
	assert.InDelta(t, 350, result.Request.ApprovedValue, 1e-9)
	assert.Zero(t, result.Request.Saving)
	assert.False(t, result.Notified)
}

func TestUpdateDuplicateOnNewInvoiceNumber(t *testing.T) {
	svc, _, _, _ := newTestService()

	first, err := svc.Submit(context.Background(), validDTO(), false)
	require.NoError(t, err)

	other := validDTO()
	other.InvoiceNumber = "2002"
	second, err := svc.Submit(context.Background(), other, false)
	require.NoError(t, err)

	// renumbering the second onto the first's invoice collides
	dto := ManagedRequestDTO{RequestDTO: other}
	dto.InvoiceNumber = "1001"
	_, err = svc.Update(context.Background(), second.Request.ID, dto, master, false)
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.Request.ID, dup.ExistingID.String())

	// saving without changing the invoice number never collides with itself
	dto.InvoiceNumber = "2002"
	_, err = svc.Update(context.Background(), second.Request.ID, dto, master, false)
	assert.NoError(t, err)
}

func TestUpdateOfForcedDuplicateKeepsWarning(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, validDTO(), false)
	require.NoError(t, err)

	// same invoice and branch forced in on purpose
	forced, err := svc.Create(ctx, ManagedRequestDTO{RequestDTO: validDTO()}, master, true)
	require.NoError(t, err)

	// an unrelated edit still surfaces the unresolved collision
	dto := ManagedRequestDTO{RequestDTO: validDTO()}
	dto.Note = "ajuste de observação"
	_, err = svc.Update(ctx, forced.Request.ID, dto, master, false)
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)

	_, err = svc.Update(ctx, forced.Request.ID, dto, master, true)
	assert.NoError(t, err)
}

// --- Delete / resend ---

func TestDeleteRemovesRecord(t *testing.T) {
	svc, repo, _, _ := newTestService()

	created, err := svc.Submit(context.Background(), validDTO(), false)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.Request.ID, master))
	assert.Empty(t, repo.records)
}

func TestResendStaffAlertOnlyForPending(t *testing.T) {
	svc, _, notifier, _ := newTestService()

	created, err := svc.Submit(context.Background(), validDTO(), false)
	require.NoError(t, err)
	notifier.staffCalls = nil

	sent, err := svc.ResendStaffAlert(context.Background(), created.Request.ID)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Len(t, notifier.staffCalls, 1)

	_, err = svc.Transition(context.Background(), created.Request.ID, TransitionDTO{Status: model.StatusApproved}, master)
	require.NoError(t, err)

	_, err = svc.ResendStaffAlert(context.Background(), created.Request.ID)
	assert.ErrorContains(t, err, "already")
}

// --- List ---

func TestListKPIBlock(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Submit(ctx, validDTO(), false)
	require.NoError(t, err)

	dto := validDTO()
	dto.InvoiceNumber = "2002"
	dto.RequestedValue = 200
	_, err = svc.Submit(ctx, dto, false)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, a.Request.ID, TransitionDTO{Status: model.StatusApproved, ApprovedValue: 300}, master)
	require.NoError(t, err)

	result, err := svc.List(ctx, filter.Filter{}, master)

	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 1, result.KPIs.Pending.Count)
	assert.InDelta(t, 200, result.KPIs.Pending.Value, 1e-9)
	assert.Equal(t, 1, result.KPIs.Approved.Count)
	assert.InDelta(t, 300, result.KPIs.Approved.Value, 1e-9)
	assert.Equal(t, 2, result.KPIs.Total.Count)
	assert.InDelta(t, 500, result.KPIs.Total.Value, 1e-9)
}

func TestListScopedActorSeesOnlyOwnBranch(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, validDTO(), false)
	require.NoError(t, err)

	other := validDTO()
	other.BranchUF = "RJ"
	_, err = svc.Submit(ctx, other, false)
	require.NoError(t, err)

	result, err := svc.List(ctx, filter.Filter{}, spApprover)

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "SP", result.Items[0].BranchUF)
}

// --- Snapshot feed ---

func TestPublishSnapshotPayload(t *testing.T) {
	svc, _, _, hub := newTestService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, validDTO(), false)
	require.NoError(t, err)
	require.NotEmpty(t, hub.messages)

	var payload struct {
		Event string            `json:"event"`
		Data  []RequestResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(hub.messages[len(hub.messages)-1], &payload))
	assert.Equal(t, "requests_snapshot", payload.Event)
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "1001", payload.Data[0].InvoiceNumber)
}
