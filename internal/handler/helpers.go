package handler

import (
	"errors"
	"net/http"
	"reflect"

	"restopos/internal/apierror"
	"restopos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0 and required work on money fields.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

func validationFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.New("invalid request: "+err.Error()))
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
}

// bindAndValidate binds the JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails; the
// caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		validationFailed(c, err)
		return false
	}
	return true
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		validationFailed(c, err)
		return false
	}
	return true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// outletAllowed rejects operators whose token is scoped to other outlets.
func outletAllowed(c *gin.Context, outletID uuid.UUID) bool {
	if middleware.GetClaims(c).CanAccessOutlet(outletID.String()) {
		return true
	}
	c.JSON(http.StatusForbidden, apierror.New("outlet not accessible with this token"))
	return false
}

// scopedToken reports whether the token is limited to a set of outlets, so
// ID-keyed routes must look up the owning outlet before acting.
func scopedToken(c *gin.Context) bool {
	claims := middleware.GetClaims(c)
	return claims == nil || len(claims.OutletIDs) > 0
}

// listScope returns the outlet scope a list query runs under. A requested
// outlet outside the token's scope is rejected.
func listScope(c *gin.Context, requested string) ([]string, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil || (requested != "" && !claims.CanAccessOutlet(requested)) {
		c.JSON(http.StatusForbidden, apierror.New("outlet not accessible with this token"))
		return nil, false
	}
	return claims.OutletIDs, true
}

func operator(c *gin.Context) string { return middleware.GetClaims(c).Operator() }

// respondError writes the envelope for a service error. Unclassified errors
// are also attached to the context so ErrorHandler logs them.
func respondError(c *gin.Context, err error) {
	status := middleware.StatusFor(err)
	var domainErr *apierror.Error
	if status == http.StatusInternalServerError || !errors.As(err, &domainErr) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
		return
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.JSON(status, domainErr.Envelope())
}
