package handlers

import (
	"fmt"
	"net/http"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/shadabtanjeed/UniListing-sub000/internal/database"
	"github.com/shadabtanjeed/UniListing-sub000/internal/models"
	"github.com/shadabtanjeed/UniListing-sub000/internal/services"
	"github.com/shadabtanjeed/UniListing-sub000/pkg/logger"
	"github.com/shadabtanjeed/UniListing-sub000/pkg/utils"
	"golang.org/x/crypto/bcrypt"
)

const tokenCookieMaxAge = 7 * 24 * 3600 // matches the JWT lifetime

// --- Helper Functions ---

func validatePasswordStrength(password string) error {
	var (
		hasMinLen = false
		hasUpper  = false
		hasLower  = false
		hasNumber = false
	)
	if len(password) >= 8 {
		hasMinLen = true
	}
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	if !hasMinLen || !hasUpper || !hasLower || !hasNumber {
		return fmt.Errorf("password must be at least 8 characters long and contain at least one uppercase letter, one lowercase letter, and one number")
	}
	return nil
}

func setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("token", token, tokenCookieMaxAge, "/", "", false, true)
}

// conflictIfUserExists writes a 409 and returns true when the username or
// email is already taken.
func conflictIfUserExists(c *gin.Context, username, email string) bool {
	var existing models.User
	if err := database.DB.Where("username = ?", username).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"message": "This username is already taken. Please choose another one."})
		return true
	}
	if err := database.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"message": "An account with this email already exists. Please sign in instead."})
		return true
	}
	return false
}

// --- Signup with email verification ---

type SignupInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest validates the signup data and emails a 6-digit code. The
// account is only created once the code is verified.
func SignupRequest(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if !utils.ValidateUsername(input.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username must be 3-30 characters and contain only letters, numbers, underscores, or hyphens"})
		return
	}
	if err := validatePasswordStrength(input.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if conflictIfUserExists(c, input.Username, input.Email) {
		return
	}

	code, err := services.GenerateOTP()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate verification code")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate verification code"})
		return
	}

	if err := OTPCodes.Put(input.Email, code, services.OTPTTL); err != nil {
		logger.Error().Err(err).Msg("Failed to store verification code")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to issue verification code"})
		return
	}

	if err := Mail.SendVerificationCode(input.Email, code); err != nil {
		logger.Error().Err(err).Str("email", input.Email).Msg("Failed to send verification mail")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send verification email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

type VerifyOTPInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// VerifyOTP checks the emailed code and creates the account.
func VerifyOTP(c *gin.Context) {
	var input VerifyOTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	stored, ok, err := OTPCodes.Get(input.Email)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read verification code")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to verify code"})
		return
	}
	if !ok || stored != input.Code {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired verification code"})
		return
	}

	if !utils.ValidateUsername(input.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid username"})
		return
	}
	if err := validatePasswordStrength(input.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to hash password"})
		return
	}

	user := models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: string(hashedPassword),
	}
	if result := database.DB.Create(&user); result.Error != nil {
		if conflictIfUserExists(c, input.Username, input.Email) {
			return
		}
		logger.Warn().Err(result.Error).Str("email", input.Email).Msg("Signup failed")
		c.JSON(http.StatusConflict, gin.H{"message": "User with this email or username already exists"})
		return
	}

	_ = OTPCodes.Delete(input.Email)

	token, err := utils.GenerateToken(user.Username)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate token"})
		return
	}
	setAuthCookie(c, token)

	c.JSON(http.StatusCreated, gin.H{"username": user.Username, "email": user.Email})
}

// --- Login / Logout / Session ---

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	var user models.User
	if err := database.DB.Where("username = ?", input.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}

	token, err := utils.GenerateToken(user.Username)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate token"})
		return
	}
	setAuthCookie(c, token)

	c.JSON(http.StatusOK, gin.H{"username": user.Username, "email": user.Email})
}

func Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Session returns the authenticated caller's identity.
func Session(c *gin.Context) {
	username := c.MustGet("username").(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}
