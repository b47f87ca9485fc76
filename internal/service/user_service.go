package service

import (
	"context"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"mime/multipart"
)

type StudentService struct {
	repo    *repository.StudentRepository
	storage *StorageService
}

func NewStudentService(repo *repository.StudentRepository, storage *StorageService) *StudentService {
	return &StudentService{repo: repo, storage: storage}
}

// UpdateStudentRequest carries the editable profile fields. Nil means keep.
type UpdateStudentRequest struct {
	FirstName          *string                   `json:"firstName"`
	LastName           *string                   `json:"lastName"`
	PhoneNumber        *string                   `json:"phoneNumber"`
	Level              *model.StudentLevel       `json:"level"`
	Address            *string                   `json:"address"`
	School             *string                   `json:"school"`
	Subjects           []string                  `json:"subjects"`
	SubscriptionStatus *model.SubscriptionStatus `json:"subscriptionStatus"`
	NextOfKinName      *string                   `json:"nextOfKinName"`
	NextOfKinPhone     *string                   `json:"nextOfKinPhone"`
}

func (s *StudentService) GetStudent(id uint) (*model.Student, error) {
	st, err := s.repo.FindByID(id)
	return st, mapNotFound(err, util.ErrStudentNotFound)
}

func (s *StudentService) ListStudents(search string, page, limit int) ([]model.Student, int64, error) {
	return s.repo.List(search, page, limit)
}

// UpdateStudent applies req. Only admins may change the subscription status.
func (s *StudentService) UpdateStudent(id uint, req UpdateStudentRequest, asAdmin bool) (*model.Student, error) {
	student, err := s.GetStudent(id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		student.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		student.LastName = *req.LastName
	}
	if req.PhoneNumber != nil && *req.PhoneNumber != student.PhoneNumber {
		student.PhoneNumber = *req.PhoneNumber
		student.IsPhoneVerified = false
	}
	if req.Level != nil {
		if !req.Level.Valid() {
			return nil, util.NewError(util.ErrValidation, "Invalid level")
		}
		student.Level = *req.Level
	}
	if req.Address != nil {
		student.Address = *req.Address
	}
	if req.School != nil {
		student.School = *req.School
	}
	if req.Subjects != nil {
		student.Subjects = req.Subjects
	}
	if req.NextOfKinName != nil {
		student.NextOfKinName = *req.NextOfKinName
	}
	if req.NextOfKinPhone != nil {
		student.NextOfKinPhone = *req.NextOfKinPhone
	}
	if req.SubscriptionStatus != nil {
		if !asAdmin {
			return nil, util.NewError(util.ErrPermissionDenied, "Only admins can change the subscription status")
		}
		switch *req.SubscriptionStatus {
		case model.SubscriptionActive, model.SubscriptionInactive, model.SubscriptionPending:
			student.SubscriptionStatus = *req.SubscriptionStatus
		default:
			return nil, util.NewError(util.ErrValidation, "Invalid subscription status")
		}
	}

	if err := s.repo.Save(student); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *StudentService) UpdateProfilePicture(ctx context.Context, id uint, fh *multipart.FileHeader) (*model.Student, error) {
	student, err := s.GetStudent(id)
	if err != nil {
		return nil, err
	}
	stored, err := s.storage.Store(ctx, "students", fh, util.AllowedImageTypes)
	if err != nil {
		return nil, err
	}
	old := student.ProfilePicture
	student.ProfilePicture = stored.URL
	if err := s.repo.Save(student); err != nil {
		s.storage.Remove(ctx, stored.URL)
		return nil, err
	}
	s.storage.Remove(ctx, old)
	return student, nil
}

func (s *StudentService) DeleteStudent(ctx context.Context, id uint) error {
	student, err := s.GetStudent(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.storage.Remove(ctx, student.ProfilePicture)
	return nil
}

type AdminService struct {
	repo    *repository.AdminRepository
	storage *StorageService
}

func NewAdminService(repo *repository.AdminRepository, storage *StorageService) *AdminService {
	return &AdminService{repo: repo, storage: storage}
}

type UpdateAdminRequest struct {
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	ContactNumber *string `json:"contactNumber"`
}

func (s *AdminService) GetAdmin(id uint) (*model.Admin, error) {
	a, err := s.repo.FindByID(id)
	return a, mapNotFound(err, util.ErrAdminNotFound)
}

func (s *AdminService) ListAdmins() ([]model.Admin, error) {
	return s.repo.List()
}

func (s *AdminService) UpdateAdmin(id uint, req UpdateAdminRequest) (*model.Admin, error) {
	admin, err := s.GetAdmin(id)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		admin.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		admin.LastName = *req.LastName
	}
	if req.ContactNumber != nil {
		admin.ContactNumber = *req.ContactNumber
	}
	if err := s.repo.Save(admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *AdminService) UpdateProfilePicture(ctx context.Context, id uint, fh *multipart.FileHeader) (*model.Admin, error) {
	admin, err := s.GetAdmin(id)
	if err != nil {
		return nil, err
	}
	stored, err := s.storage.Store(ctx, "admins", fh, util.AllowedImageTypes)
	if err != nil {
		return nil, err
	}
	old := admin.ProfilePicture
	admin.ProfilePicture = stored.URL
	if err := s.repo.Save(admin); err != nil {
		s.storage.Remove(ctx, stored.URL)
		return nil, err
	}
	s.storage.Remove(ctx, old)
	return admin, nil
}

// DeleteAdmin refuses to remove the last main admin.
func (s *AdminService) DeleteAdmin(actorRole model.UserRole, id uint) error {
	if actorRole != model.RoleMainAdmin {
		return util.ErrMainAdminOnly
	}
	admin, err := s.GetAdmin(id)
	if err != nil {
		return err
	}
	if admin.Role == model.RoleMainAdmin {
		admins, err := s.repo.List()
		if err != nil {
			return err
		}
		mains := 0
		for _, a := range admins {
			if a.Role == model.RoleMainAdmin {
				mains++
			}
		}
		if mains <= 1 {
			return util.NewError(util.ErrConflict, "Cannot delete the last main admin")
		}
	}
	return s.repo.Delete(id)
}

// ParticipantResolver loads the account behind a Participant, one typed
// lookup per kind.
type ParticipantResolver struct {
	students *repository.StudentRepository
	admins   *repository.AdminRepository
}

func NewParticipantResolver(students *repository.StudentRepository, admins *repository.AdminRepository) *ParticipantResolver {
	return &ParticipantResolver{students: students, admins: admins}
}

func (r *ParticipantResolver) Resolve(p model.Participant) (*model.ParticipantProfile, error) {
	switch p.Kind {
	case model.ParticipantStudent:
		st, err := r.students.FindByID(p.RefID)
		if err != nil {
			return nil, mapNotFound(err, util.ErrStudentNotFound)
		}
		return studentProfile(st), nil
	case model.ParticipantAdmin:
		a, err := r.admins.FindByID(p.RefID)
		if err != nil {
			return nil, mapNotFound(err, util.ErrAdminNotFound)
		}
		return adminProfile(a), nil
	}
	return nil, util.NewError(util.ErrValidation, "Invalid participant kind")
}

// ResolveAll batches lookups per kind. Participants whose account no longer
// exists are left out.
func (r *ParticipantResolver) ResolveAll(ps []model.Participant) (map[model.Participant]*model.ParticipantProfile, error) {
	var studentIDs, adminIDs []uint
	for _, p := range ps {
		switch p.Kind {
		case model.ParticipantStudent:
			studentIDs = append(studentIDs, p.RefID)
		case model.ParticipantAdmin:
			adminIDs = append(adminIDs, p.RefID)
		}
	}

	out := make(map[model.Participant]*model.ParticipantProfile, len(ps))
	students, err := r.students.FindByIDs(studentIDs)
	if err != nil {
		return nil, err
	}
	for i := range students {
		prof := studentProfile(&students[i])
		out[prof.Participant] = prof
	}
	admins, err := r.admins.FindByIDs(adminIDs)
	if err != nil {
		return nil, err
	}
	for i := range admins {
		prof := adminProfile(&admins[i])
		out[prof.Participant] = prof
	}
	return out, nil
}

// Exists reports whether the participant's account is present.
func (r *ParticipantResolver) Exists(p model.Participant) error {
	_, err := r.Resolve(p)
	return err
}

func studentProfile(st *model.Student) *model.ParticipantProfile {
	return &model.ParticipantProfile{
		Participant:    model.StudentParticipant(st.ID),
		FirstName:      st.FirstName,
		LastName:       st.LastName,
		Email:          st.Email,
		ProfilePicture: st.ProfilePicture,
	}
}

func adminProfile(a *model.Admin) *model.ParticipantProfile {
	return &model.ParticipantProfile{
		Participant:    model.AdminParticipant(a.ID),
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Email:          a.Email,
		ProfilePicture: a.ProfilePicture,
	}
}
