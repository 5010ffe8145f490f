package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
)

type requestAppender interface {
	Append(ctx context.Context, data models.NewRequestData) (*models.MaintenanceRequest, error)
}

type auditRecorder interface {
	Record(ev models.AuditEvent)
}

// IntakeConfig tunes which form fields are mandatory.
type IntakeConfig struct {
	RequireIdentity     bool
	RequireLocation     bool
	PhotoPlaceholderURL string
}

// intakeForm is the trimmed submission that struct tags validate.
type intakeForm struct {
	Name           string `validate:"required"`
	RegisterNumber string `validate:"required"`
	HostelName     string `validate:"required"`
	Floor          string `validate:"required"`
	RoomNumber     string `validate:"required"`
	Category       string `validate:"required"`
	Description    string `validate:"required,min=10"`
}

var intakeFieldKeys = map[string]string{
	"Name":           "name",
	"RegisterNumber": "registerNumber",
	"HostelName":     "hostelName",
	"Floor":          "floor",
	"RoomNumber":     "roomNumber",
	"Category":       "category",
	"Description":    "description",
}

var intakeRequiredMessages = map[string]string{
	"name":           "Name is required.",
	"registerNumber": "Register number is required.",
	"hostelName":     "Hostel name is required.",
	"floor":          "Floor is required.",
	"roomNumber":     "Room number is required.",
	"category":       "Category is required.",
	"description":    "Description must be at least 10 characters.",
}

const (
	msgACUnavailable     = "AC is not available for the selected hostel and floor."
	msgHostelWrongGender = "Hostel is not available for the selected gender."
	msgIntakeFailed      = "An error occurred while creating the request."
)

// IntakeService validates, classifies and stores new maintenance requests.
// Nothing is stored unless classification succeeds.
type IntakeService struct {
	store      requestAppender
	classifier UrgencyClassifier
	campus     *CampusService
	audit      auditRecorder
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     IntakeConfig
}

// NewIntakeService constructs the pipeline.
func NewIntakeService(store requestAppender, classifier UrgencyClassifier, campus *CampusService, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg IntakeConfig) *IntakeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PhotoPlaceholderURL == "" {
		cfg.PhotoPlaceholderURL = "https://placehold.co/400x300.png"
	}
	return &IntakeService{
		store:      store,
		classifier: classifier,
		campus:     campus,
		audit:      audit,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     cfg,
	}
}

// Submit runs the full pipeline for one form submission.
func (s *IntakeService) Submit(ctx context.Context, input models.CreateRequestInput, actor string, client models.ClientInfo) (*models.IntakeResult, error) {
	data, err := s.validate(input)
	if err != nil {
		s.metrics.RecordIntake(models.IntakeOutcomeValidationFailed)
		return nil, err
	}

	assessment, err := s.classifier.Classify(ctx, data.Category, data.Description)
	if err != nil {
		s.metrics.RecordIntake(models.IntakeOutcomeClassificationFailed)
		s.recordFailure(actor, client, data, "classification")
		if errors.Is(err, appErrors.ErrClassification) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrClassification.Code, appErrors.ErrClassification.Status, msgIntakeFailed)
	}
	if !assessment.Urgency.Valid() {
		s.metrics.RecordIntake(models.IntakeOutcomeClassificationFailed)
		s.recordFailure(actor, client, data, "classification")
		s.logger.Warn("classifier returned unknown urgency", zap.String("urgency", string(assessment.Urgency)))
		return nil, appErrors.Wrap(fmt.Errorf("unknown urgency %q", assessment.Urgency),
			appErrors.ErrClassification.Code, appErrors.ErrClassification.Status, msgIntakeFailed)
	}

	data.Urgency = assessment.Urgency
	data.UrgencyReason = assessment.Reason
	data.Status = models.StatusSubmitted

	start := time.Now()
	stored, err := s.store.Append(ctx, data)
	s.metrics.ObserveDBQuery("request_append", time.Since(start))
	if err != nil {
		s.metrics.RecordIntake(models.IntakeOutcomeStorageFailed)
		s.recordFailure(actor, client, data, "storage")
		s.logger.Error("failed to store request", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, msgIntakeFailed)
	}

	s.metrics.RecordIntake(models.IntakeOutcomeAccepted)
	s.audit.Record(models.AuditEvent{
		Actor:      actor,
		Action:     models.AuditActionIntake,
		Resource:   "maintenance_request",
		ResourceID: stored.ID,
		New:        stored,
		Client:     client,
	})
	s.logger.Info("request submitted",
		zap.String("id", stored.ID),
		zap.String("category", string(stored.Category)),
		zap.String("urgency", string(stored.Urgency)),
	)

	return &models.IntakeResult{
		Message: fmt.Sprintf("Request submitted successfully. Predicted urgency: %s.", stored.Urgency),
		Request: stored,
	}, nil
}

func (s *IntakeService) recordFailure(actor string, client models.ClientInfo, data models.NewRequestData, stage string) {
	s.audit.Record(models.AuditEvent{
		Actor:    actor,
		Action:   models.AuditActionIntakeFailed,
		Resource: "maintenance_request",
		New: map[string]string{
			"stage":      stage,
			"hostelName": data.HostelName,
			"roomNumber": data.RoomNumber,
			"category":   string(data.Category),
		},
		Client: client,
	})
}

// validate returns the normalised request data or an ErrValidation carrying
// a per-field message map.
func (s *IntakeService) validate(input models.CreateRequestInput) (models.NewRequestData, error) {
	form := intakeForm{
		Name:           strings.TrimSpace(input.Name),
		RegisterNumber: strings.TrimSpace(input.RegisterNumber),
		HostelName:     strings.TrimSpace(input.HostelName),
		Floor:          strings.TrimSpace(input.Floor),
		RoomNumber:     strings.TrimSpace(input.RoomNumber),
		Category:       strings.TrimSpace(input.Category),
		Description:    strings.TrimSpace(input.Description),
	}
	gender := strings.ToLower(strings.TrimSpace(input.Gender))
	priority := strings.TrimSpace(input.Priority)

	fields := make(map[string][]string)
	add := func(field, msg string) {
		fields[field] = append(fields[field], msg)
	}

	var except []string
	if !s.config.RequireIdentity {
		except = append(except, "Name", "RegisterNumber")
	}
	if !s.config.RequireLocation {
		except = append(except, "HostelName", "Floor")
	}
	var err error
	if len(except) > 0 {
		err = s.validator.StructExcept(form, except...)
	} else {
		err = s.validator.Struct(form)
	}
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.NewRequestData{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
		}
		for _, fe := range verrs {
			key := intakeFieldKeys[fe.StructField()]
			add(key, intakeRequiredMessages[key])
		}
	}

	if form.Category != "" && !s.campus.CategoryKnown(form.Category) {
		add("category", "Category must be one of: "+strings.Join(s.campus.CategoryNames(), ", ")+".")
	}
	if form.HostelName != "" && !s.campus.HostelKnown(form.HostelName) {
		add("hostelName", "Hostel name must be one of: "+strings.Join(s.campus.HostelNames(), ", ")+".")
	}
	if priority != "" && !validPriority(models.Priority(priority)) {
		add("priority", "Priority must be one of: Low, Medium, High.")
	}
	if gender != "" && gender != Genders[0] && gender != Genders[1] {
		add("gender", "Gender must be one of: "+strings.Join(Genders, ", ")+".")
	}

	_, badCategory := fields["category"]
	_, badGender := fields["gender"]
	_, badHostel := fields["hostelName"]
	if !badCategory && !badHostel && form.HostelName != "" && s.campus.RequiresAC(form.Category) && !s.campus.HasAC(form.HostelName, form.Floor) {
		add("category", msgACUnavailable)
	}
	if gender != "" && !badGender && !badHostel && form.HostelName != "" && !s.campus.HostelAllowed(gender, form.HostelName) {
		add("hostelName", msgHostelWrongGender)
	}

	if len(fields) > 0 {
		return models.NewRequestData{}, appErrors.WithFields(appErrors.ErrValidation, fields)
	}

	derived := models.PriorityLow
	if forced, ok := s.campus.ForcedPriority(form.Category); ok {
		derived = forced
	} else if priority != "" {
		derived = models.Priority(priority)
	}

	var imageURL *string
	switch {
	case input.HasPhoto:
		placeholder := s.config.PhotoPlaceholderURL
		imageURL = &placeholder
	case strings.TrimSpace(input.ImageURL) != "":
		v := strings.TrimSpace(input.ImageURL)
		imageURL = &v
	}

	return models.NewRequestData{
		Name:           form.Name,
		RegisterNumber: form.RegisterNumber,
		HostelName:     form.HostelName,
		Floor:          form.Floor,
		RoomNumber:     form.RoomNumber,
		Category:       models.Category(form.Category),
		Priority:       derived,
		Description:    form.Description,
		ImageURL:       imageURL,
	}, nil
}

func validPriority(p models.Priority) bool {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	}
	return false
}
