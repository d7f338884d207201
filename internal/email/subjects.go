package email

const subjectPropertyReviewFmt = "Property needs review: %s"
